package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

// rawJSON merges the submission file with the --start flag without forcing
// the CLI to know the full request shape.
func rawJSON(raw []byte, start bool) interface{} {
	var m map[string]interface{}
	if json.Unmarshal(raw, &m) != nil {
		return json.RawMessage(raw)
	}
	if start {
		m["start"] = true
	}
	return m
}

func campaignsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "Manage bulk campaigns",
	}
	cmd.AddCommand(campaignsListCmd())
	cmd.AddCommand(campaignsShowCmd())
	cmd.AddCommand(campaignsSubmitCmd())
	cmd.AddCommand(campaignsCtlCmd("start", "Start a READY campaign"))
	cmd.AddCommand(campaignsCtlCmd("pause", "Pause a running campaign at the next contact"))
	cmd.AddCommand(campaignsCtlCmd("resume", "Resume a paused campaign from its checkpoint"))
	cmd.AddCommand(campaignsCtlCmd("cancel", "Cancel a campaign permanently"))
	return cmd
}

func campaignsListCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			var out struct {
				Campaigns []*store.Campaign `json:"campaigns"`
			}
			path := "/api/campaigns"
			if tenantID != "" {
				path += "?tenant_id=" + tenantID
			}
			if err := api.do("GET", path, nil, &out); err != nil {
				return err
			}
			if len(out.Campaigns) == 0 {
				fmt.Println("no campaigns")
				return nil
			}
			for _, c := range out.Campaigns {
				fmt.Printf("%s  %-9s  %d/%d sent (%d failed)  channel=%s\n",
					c.ID, c.Status, c.Sent, c.Total(), c.Failed, c.ChannelID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "filter by tenant id")
	return cmd
}

func campaignsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			var c store.Campaign
			if err := api.do("GET", "/api/campaigns/"+args[0], nil, &c); err != nil {
				return err
			}
			fmt.Printf("id:         %s\n", c.ID)
			fmt.Printf("status:     %s\n", c.Status)
			fmt.Printf("channel:    %s\n", c.ChannelID)
			fmt.Printf("progress:   %d/%d (checkpoint %d, %d failed)\n",
				c.Sent, c.Total(), c.Checkpoint, c.Failed)
			fmt.Printf("delay:      %d-%ds\n", c.MinDelaySeconds, c.MaxDelaySeconds)
			for _, id := range c.FailedContacts {
				fmt.Printf("  failed: %s\n", id)
			}
			return nil
		},
	}
}

func campaignsSubmitCmd() *cobra.Command {
	var start bool
	cmd := &cobra.Command{
		Use:   "submit <file.json>",
		Short: "Submit a campaign from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read campaign file: %w", err)
			}
			api, err := newAPIClient()
			if err != nil {
				return err
			}

			var c store.Campaign
			if err := api.do("POST", "/api/campaigns", rawJSON(raw, start), &c); err != nil {
				return err
			}
			fmt.Printf("campaign %s submitted (%d contacts)\n", c.ID, c.Total())
			return nil
		},
	}
	cmd.Flags().BoolVar(&start, "start", false, "start immediately after submission")
	return cmd
}

func campaignsCtlCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			var out map[string]string
			if err := api.do("POST", "/api/campaigns/"+args[0]+"/"+action, struct{}{}, &out); err != nil {
				return err
			}
			fmt.Printf("campaign %s: %s\n", args[0], out["status"])
			return nil
		},
	}
}
