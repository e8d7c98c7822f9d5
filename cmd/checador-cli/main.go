// Command checador-cli is a thin operational tool for the kiosk: export
// recorded punches, manage users, and exercise the camera and sync worker
// from the command line without going through the HTTP admin API.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/console"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/capture/v4l2"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/config"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/syncworker"
)

const usage = `checador-cli [-c config.toml] <command> [flags]

Commands:
  export --output F [--start ISO] [--end ISO]   write recorded punches as CSV
  users list [--all]                            list users (active only unless --all)
  users deactivate --employee-code C            deactivate a user by employee code
  camera test                                   run camera diagnostics
  sync now                                      trigger an immediate sync pass
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("checador-cli", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configFile := fs.String("c", "/etc/checador/checador.toml", "Config file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, console.Error("load config: %s", err))
		return 1
	}

	var cmdErr error
	switch rest[0] {
	case "export":
		cmdErr = runExport(ctx, cfg, rest[1:])
	case "users":
		cmdErr = runUsers(ctx, cfg, rest[1:])
	case "camera":
		cmdErr = runCamera(ctx, cfg, rest[1:])
	case "sync":
		cmdErr = runSync(ctx, cfg, rest[1:])
	default:
		fmt.Fprintln(os.Stderr, console.Error("unknown command %q", rest[0]))
		fs.Usage()
		return 1
	}

	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, console.Warn("interrupted"))
		return 130
	}
	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, console.Error("%s", cmdErr))
		return 1
	}
	return 0
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.Database.Path)
}

// parseOptionalTime returns nil when iso is empty, so GetPunches treats an
// unset flag as an open-ended bound instead of a zero-value timestamp.
func parseOptionalTime(iso string) (*store.Time, error) {
	if iso == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return nil, err
	}
	t := store.Time(parsed)
	return &t, nil
}

func runExport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	output := fs.String("output", "", "Output CSV file")
	startISO := fs.String("start", "", "Start timestamp, RFC3339")
	endISO := fs.String("end", "", "End timestamp, RFC3339")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		return fmt.Errorf("export: --output is required")
	}

	start, err := parseOptionalTime(*startISO)
	if err != nil {
		return fmt.Errorf("export: --start: %w", err)
	}
	end, err := parseOptionalTime(*endISO)
	if err != nil {
		return fmt.Errorf("export: --end: %w", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	punches, err := s.GetPunches(ctx, start, end, nil)
	if err != nil {
		return err
	}

	names := make(map[int64]string, len(punches))
	for _, p := range punches {
		if _, ok := names[p.UserID]; ok {
			continue
		}
		if u, err := s.GetUser(ctx, p.UserID); err == nil {
			names[p.UserID] = u.Name
		}
	}

	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"user_id", "name", "punch_type", "timestamp_local", "timestamp_utc", "match_score", "device_id", "synced"}); err != nil {
		return err
	}
	for _, p := range punches {
		if err := w.Write([]string{
			strconv.FormatInt(p.UserID, 10),
			names[p.UserID],
			string(p.PunchType),
			p.TimestampLocal.String(),
			p.TimestampUTC.String(),
			strconv.Itoa(p.MatchScore),
			p.DeviceID,
			strconv.FormatBool(p.Synced),
		}); err != nil {
			return err
		}
	}
	fmt.Println(console.Success("wrote %d punches to %s", len(punches), *output))
	return nil
}

func runUsers(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("users: expected a subcommand (list, deactivate)")
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("users list", flag.ContinueOnError)
		all := fs.Bool("all", false, "Include deactivated users")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		users, err := s.ListUsers(ctx, !*all)
		if err != nil {
			return err
		}
		for _, u := range users {
			status := "active"
			if !u.Active {
				status = "inactive"
			}
			fmt.Printf("%-6d %-20s %-12s %-10s templates=%d\n", u.ID, u.Name, u.EmployeeCode, status, u.TemplateCount)
		}
		return nil

	case "deactivate":
		fs := flag.NewFlagSet("users deactivate", flag.ContinueOnError)
		code := fs.String("employee-code", "", "Employee code")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *code == "" {
			return fmt.Errorf("users deactivate: --employee-code is required")
		}
		u, err := s.GetUserByCode(ctx, *code)
		if err != nil {
			return err
		}
		if err := s.DeactivateUser(ctx, u.ID); err != nil {
			return err
		}
		fmt.Println(console.Success("deactivated %s (%s)", u.Name, u.EmployeeCode))
		return nil

	default:
		return fmt.Errorf("users: unknown subcommand %q", args[0])
	}
}

func runCamera(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 || args[0] != "test" {
		return fmt.Errorf("camera: expected subcommand \"test\"")
	}
	cam := v4l2.New(&cfg.Camera)
	diag := cam.Test()
	fmt.Printf("device:        %s\n", diag.Device)
	fmt.Printf("accessible:    %v\n", diag.Accessible)
	fmt.Printf("opened:        %v\n", diag.Opened)
	fmt.Printf("frame captured: %v\n", diag.FrameCaptured)
	if diag.Resolution != "" {
		fmt.Printf("resolution:    %s\n", diag.Resolution)
	}
	fmt.Printf("roi valid:     %v\n", diag.ROIValid)
	if diag.Error != "" {
		fmt.Println(console.Error("error: %s", diag.Error))
		return fmt.Errorf("camera test failed: %s", diag.Error)
	}
	fmt.Println(console.Success("camera ok"))
	return nil
}

func runSync(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 || args[0] != "now" {
		return fmt.Errorf("sync: expected subcommand \"now\"")
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	apiKey, err := cfg.SyncAPIKey()
	if err != nil {
		return err
	}
	w := syncworker.New(s, cfg.Server.Enabled, cfg.Server.URL, apiKey, cfg.Server.SyncIntervalMinutes)
	w.SyncNow(ctx)
	status := w.GetStatus(ctx)
	fmt.Println(console.Success("synced; %d punches still unsynced", status.UnsyncedCount))
	return nil
}
