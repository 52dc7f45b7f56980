package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/leadclaw/internal/config"
	"github.com/nextlevelbuilder/leadclaw/internal/store"
	"github.com/nextlevelbuilder/leadclaw/internal/transport"
)

func channelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Manage gateway channels",
	}
	cmd.AddCommand(channelsListCmd())
	cmd.AddCommand(channelsAddCmd())
	cmd.AddCommand(channelsConnectCmd())
	cmd.AddCommand(channelsStatusCmd())
	cmd.AddCommand(channelsWebhookCmd())
	return cmd
}

func loadCLIStores() (*config.Config, *store.Stores, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	stores, _ := openStores(cfg)
	return cfg, stores, nil
}

func transportFromConfig(cfg *config.Config) *transport.Client {
	timeout := time.Duration(cfg.Transport.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return transport.New(cfg.Transport.BaseURL, timeout)
}

func channelToken(cfg *config.Config, ch *store.Channel) string {
	if ch.Token != "" {
		return ch.Token
	}
	return cfg.Transport.DefaultToken
}

func channelsListCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, stores, err := loadCLIStores()
			if err != nil {
				return err
			}
			list, err := stores.Channels.List(tenantID)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("no channels")
				return nil
			}
			for _, ch := range list {
				ai := "ai=off"
				if ch.AIEnabled {
					ai = "ai=on"
				}
				fmt.Printf("%s  %-20s  tenant=%s  %s\n", ch.ID, ch.DisplayName, ch.TenantID, ai)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "filter by tenant id")
	return cmd
}

func channelsAddCmd() *cobra.Command {
	var tenantID, name string
	var aiEnabled bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}
			_, stores, err := loadCLIStores()
			if err != nil {
				return err
			}
			ch := &store.Channel{
				ID:          uuid.NewString(),
				TenantID:    tenantID,
				DisplayName: name,
				AIEnabled:   aiEnabled,
				CreatedAt:   time.Now(),
			}
			if err := stores.Channels.Put(ch); err != nil {
				return fmt.Errorf("save channel: %w", err)
			}
			fmt.Printf("channel %s registered\n", ch.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "owning tenant id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&aiEnabled, "ai", true, "enable automated responses")
	return cmd
}

func channelsConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <id>",
		Short: "Connect a channel and print its pairing QR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, stores, err := loadCLIStores()
			if err != nil {
				return err
			}
			ch, err := stores.Channels.Get(args[0])
			if err != nil {
				return err
			}
			tr := transportFromConfig(cfg)
			token := channelToken(cfg, ch)
			ctx := context.Background()

			if err := tr.Connect(ctx, token); err != nil {
				return fmt.Errorf("connect channel: %w", err)
			}
			qr, err := tr.PairingQR(ctx, token)
			if err != nil {
				return fmt.Errorf("fetch pairing qr: %w", err)
			}
			if qr == "" {
				fmt.Println("channel already paired")
				return nil
			}
			fmt.Println("scan to pair:")
			fmt.Println(qr)
			return nil
		},
	}
}

func channelsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show a channel's gateway connection status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, stores, err := loadCLIStores()
			if err != nil {
				return err
			}
			ch, err := stores.Channels.Get(args[0])
			if err != nil {
				return err
			}
			tr := transportFromConfig(cfg)
			status, err := tr.Status(context.Background(), channelToken(cfg, ch))
			if err != nil {
				return fmt.Errorf("channel status: %w", err)
			}
			fmt.Printf("%s: %s\n", ch.ID, status)
			return nil
		},
	}
}

func channelsWebhookCmd() *cobra.Command {
	var set string
	var remove bool
	cmd := &cobra.Command{
		Use:   "webhook <id>",
		Short: "Show, set, or remove the channel's webhook URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, stores, err := loadCLIStores()
			if err != nil {
				return err
			}
			ch, err := stores.Channels.Get(args[0])
			if err != nil {
				return err
			}
			tr := transportFromConfig(cfg)
			token := channelToken(cfg, ch)
			ctx := context.Background()

			if remove {
				if err := tr.DeleteWebhook(ctx, token); err != nil {
					return fmt.Errorf("delete webhook: %w", err)
				}
				fmt.Println("webhook removed")
				return nil
			}
			if set != "" {
				if err := tr.SetWebhook(ctx, token, set); err != nil {
					return fmt.Errorf("set webhook: %w", err)
				}
				fmt.Printf("webhook set to %s\n", set)
				return nil
			}
			url, err := tr.GetWebhook(ctx, token)
			if err != nil {
				return fmt.Errorf("get webhook: %w", err)
			}
			if url == "" {
				fmt.Println("no webhook configured")
				return nil
			}
			fmt.Println(url)
			return nil
		},
	}
	cmd.Flags().StringVar(&set, "set", "", "webhook URL to configure on the gateway")
	cmd.Flags().BoolVar(&remove, "delete", false, "remove the configured webhook")
	return cmd
}
