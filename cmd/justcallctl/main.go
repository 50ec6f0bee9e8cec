// justcallctl - command line control for the justcalld daemon
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"justcall/internal/config"
	"justcall/internal/ipc"
)

var version = "1.0.0"

var socketPath string

func main() {
	root := &cobra.Command{
		Use:          "justcallctl",
		Short:        "Control the justcall daemon",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", "", "daemon control socket (default: platform runtime dir)")

	root.AddCommand(
		statusCmd(),
		targetsCmd(),
		codeCmd(),
		roomCmd(),
		joinCmd(),
		hangupCmd(),
		historyCmd(),
		watchCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect dials the daemon, using the configured socket path unless the
// --socket flag overrides it.
func connect() (*ipc.Client, error) {
	path := socketPath
	if path == "" {
		cfg, err := config.Load("")
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		path = cfg.IPC.SocketPath
	}

	client := ipc.NewClient(ipc.DefaultClientConfig(path))
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.Status(false)
			if err != nil {
				return err
			}

			fmt.Printf("justcalld %s\n", status.Version)
			fmt.Printf("  uptime:   %s\n", (time.Duration(status.UptimeSec) * time.Second).String())
			fmt.Printf("  state:    %s\n", status.CallState)
			if status.ActiveTarget != "" {
				fmt.Printf("  calling:  %s\n", status.ActiveTarget)
			}
			fmt.Printf("  targets:  %d\n", status.TargetCount)
			if len(status.Hotkeys) > 0 {
				fmt.Println("  hotkeys:")
				for combo, action := range status.Hotkeys {
					fmt.Printf("    %-20s %s\n", combo, action)
				}
			}
			if status.SettingsDirty {
				fmt.Println("  warning: settings have unsaved changes (last save failed)")
			}
			return nil
		},
	}
}

func targetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Manage call targets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List configured targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			targets, err := client.Targets()
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				fmt.Println("no targets configured; add one with: justcallctl targets add <label>")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tTYPE\tPRIMARY\tCODE")
			for _, t := range targets {
				primary := ""
				if t.IsPrimary {
					primary = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Label, t.Type, primary, t.Code)
			}
			return w.Flush()
		},
	}

	var (
		addCode  string
		addType  string
		addNotes string
	)
	add := &cobra.Command{
		Use:   "add <label>",
		Short: "Add a call target",
		Long: "Add a call target. Without --code a fresh pairing code is " +
			"generated; share it with the other side so both ends derive the same room.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.AddTarget(&ipc.AddTargetRequest{
				Label: args[0],
				Code:  addCode,
				Type:  addType,
				Notes: addNotes,
			})
			if err != nil {
				return err
			}

			t := resp.Target
			fmt.Printf("added %q (%s)\n", t.Label, t.ID)
			fmt.Printf("  pairing code: %s\n", t.Code)
			if t.IsPrimary {
				fmt.Println("  this is now the primary target")
			}
			return nil
		},
	}
	add.Flags().StringVar(&addCode, "code", "", "pairing code shared by the other side")
	add.Flags().StringVar(&addType, "type", "person", "target type: person or group")
	add.Flags().StringVar(&addNotes, "notes", "", "free-form notes")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a call target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			removed, err := client.RemoveTarget(args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no target with id %s", args[0])
			}
			fmt.Println("removed")
			return nil
		},
	}

	setPrimary := &cobra.Command{
		Use:   "set-primary <id>",
		Short: "Make a target the primary call target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			updated, err := client.SetPrimary(args[0])
			if err != nil {
				return err
			}
			if !updated {
				return fmt.Errorf("no target with id %s", args[0])
			}
			fmt.Println("primary updated")
			return nil
		},
	}

	cmd.AddCommand(list, add, remove, setPrimary)
	return cmd
}

func codeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "code",
		Short: "Generate a fresh pairing code",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.GenerateCode()
			if err != nil {
				return err
			}
			fmt.Printf("code: %s\nroom: %s\n", resp.Code, resp.RoomID)
			return nil
		},
	}
}

func roomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "room <code>",
		Short: "Derive the meeting room for a pairing code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.DeriveRoom(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("room: %s\nurl:  %s\n", resp.RoomID, resp.MeetingURL)
			return nil
		},
	}
}

func joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join [target-id]",
		Short: "Start a call (primary target when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			targetID := ""
			if len(args) == 1 {
				targetID = args[0]
			}

			resp, err := client.Join(targetID)
			if err != nil {
				return err
			}
			fmt.Printf("calling %s\n  room: %s\n  url:  %s\n", resp.TargetLabel, resp.RoomID, resp.MeetingURL)
			return nil
		},
	}
}

func hangupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hangup",
		Short: "End the current call",
		Long: "End the current call. This is also the way out of a call " +
			"that never connected: hanging up while still connecting cancels it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Hangup()
			if err != nil {
				return err
			}
			if resp.WasActive {
				fmt.Println("call ended")
			} else {
				fmt.Println("no active call")
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.History(limit)
			if err != nil {
				return err
			}
			if len(resp.Calls) == 0 {
				fmt.Println("no calls recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tTARGET\tDURATION\tOUTCOME")
			for _, c := range resp.Calls {
				duration := "-"
				if c.EndedAt != nil {
					duration = c.EndedAt.Sub(c.StartedAt).Round(time.Second).String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					c.StartedAt.Local().Format("2006-01-02 15:04"),
					c.TargetLabel, duration, c.Outcome)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream daemon events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Subscribe(nil); err != nil {
				return err
			}

			for ev := range client.Events() {
				line := fmt.Sprintf("%s  %s", ev.Timestamp.Local().Format("15:04:05"), ev.Type)
				if len(ev.Data) > 0 {
					var parts []string
					for k, v := range ev.Data {
						parts = append(parts, fmt.Sprintf("%s=%v", k, v))
					}
					line += "  " + strings.Join(parts, " ")
				}
				fmt.Println(line)
				if ev.Type == ipc.EventDaemonShutdown {
					return nil
				}
			}
			return nil
		},
	}
}
