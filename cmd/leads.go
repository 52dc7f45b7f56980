package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

func leadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Inspect and control tracked leads",
	}
	cmd.AddCommand(leadsListCmd())
	cmd.AddCommand(leadsResumeCmd())
	return cmd
}

func leadsListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			var out struct {
				Leads []*store.LeadRecord `json:"leads"`
			}
			path := "/api/leads"
			if status != "" {
				path += "?status=" + status
			}
			if err := api.do("GET", path, nil, &out); err != nil {
				return err
			}
			if len(out.Leads) == 0 {
				fmt.Println("no leads")
				return nil
			}
			for _, rec := range out.Leads {
				fmt.Printf("%s  %s  %-12s  nudges=%d  last=%s\n",
					rec.ChannelID, rec.ContactID, rec.Status, rec.NudgeCount,
					rec.LastInteraction.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (RESPONDED, HUMAN_ACTIVE, NUDGED, TRANSFERRED)")
	return cmd
}

func leadsResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <channel> <contact>",
		Short: "Re-enable automation for a suspended lead",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			path := fmt.Sprintf("/api/leads/%s/%s/resume", args[0], args[1])
			if err := api.do("POST", path, struct{}{}, nil); err != nil {
				return err
			}
			fmt.Printf("lead %s/%s resumed\n", args[0], args[1])
			return nil
		},
	}
}
