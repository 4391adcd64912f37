package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/buttonhat/internal/systemd"
)

const serviceTimeout = 30 * time.Second

// CreateServiceCmd creates the service command and its status, start, stop
// and restart children.
func CreateServiceCmd() *cobra.Command {
	var (
		unit string
		user bool
	)

	cmd := &cobra.Command{
		Use:   "service",
		Short: "Control the buttonhat systemd unit",
	}
	cmd.PersistentFlags().StringVar(&unit, "unit", systemd.DefaultUnit, "Unit name")
	cmd.PersistentFlags().BoolVar(&user, "user", false, "Use the user service manager")

	withManager := func(run func(ctx context.Context, cmd *cobra.Command, m *systemd.Manager) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), serviceTimeout)
			defer cancel()
			m, err := systemd.NewManager(ctx, unit, user)
			if err != nil {
				return err
			}
			defer m.Close()
			return run(ctx, cmd, m)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the unit's active state",
		Args:  cobra.NoArgs,
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *systemd.Manager) error {
			state, err := m.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", m.Unit(), state)
			return nil
		}),
	})

	for _, action := range []struct {
		use   string
		short string
		run   func(*systemd.Manager, context.Context) error
	}{
		{"start", "Start the unit", (*systemd.Manager).Start},
		{"stop", "Stop the unit, releasing the HAT lines", (*systemd.Manager).Stop},
		{"restart", "Restart the unit", (*systemd.Manager).Restart},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   action.use,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *systemd.Manager) error {
				if err := action.run(m, ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ok\n", m.Unit(), action.use)
				return nil
			}),
		})
	}

	return cmd
}
