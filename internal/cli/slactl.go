package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-sla/internal/api/dto"
	"github.com/spec-kit/ticket-sla/internal/config"
	"github.com/spec-kit/ticket-sla/internal/service"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

// NewRootCommand builds the slactl command tree.
func NewRootCommand() *cobra.Command {
	var calendarPath string

	cmd := &cobra.Command{
		Use:           "slactl",
		Short:         "Evaluate ticket SLAs offline",
		Long:          `slactl evaluates ticket snapshots and projects business-hour deadlines using the same calendar and rules as the API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&calendarPath, "calendar", os.Getenv("BUSINESS_CALENDAR_FILE"), "Business calendar YAML file")

	cmd.AddCommand(
		newEvaluateCommand(&calendarPath),
		newDeadlineCommand(&calendarPath),
	)
	return cmd
}

func newEvaluateCommand(calendarPath *string) *cobra.Command {
	var (
		file string
		now  string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the SLA of a ticket snapshot",
		Long:  `Read a ticket snapshot (ticket fields, status history and SLA configuration) from YAML and print its SLA status as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newOfflineService(*calendarPath)
			if err != nil {
				return err
			}
			snapshot, err := readSnapshot(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			at, err := parseNow(now)
			if err != nil {
				return err
			}
			result, err := svc.EvaluateSnapshot(snapshot, at)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dto.NewSLAStatusResponse(result, true))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Snapshot YAML file, - for stdin")
	cmd.Flags().StringVar(&now, "now", "", "Evaluation instant (RFC3339), defaults to the current time")
	return cmd
}

func newDeadlineCommand(calendarPath *string) *cobra.Command {
	var (
		start string
		hours float64
	)
	cmd := &cobra.Command{
		Use:   "deadline",
		Short: "Project a business-hours deadline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newOfflineService(*calendarPath)
			if err != nil {
				return err
			}
			from, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			deadline, err := svc.Deadline(from, hours)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dto.DeadlineResponse{Start: from, Hours: hours, Deadline: deadline})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start instant (RFC3339)")
	cmd.Flags().Float64Var(&hours, "hours", 0, "Business hours to add")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func newOfflineService(calendarPath string) (*service.SLAService, error) {
	calCfg, err := config.LoadCalendar(calendarPath)
	if err != nil {
		return nil, fmt.Errorf("load business calendar: %w", err)
	}
	calendar, err := calCfg.Build()
	if err != nil {
		return nil, err
	}
	return service.NewSLAService(service.SLADependencies{Calendar: calendar}), nil
}

func readSnapshot(stdin io.Reader, path string) (service.Snapshot, error) {
	var snapshot service.Snapshot
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return snapshot, fmt.Errorf("read snapshot: %w", err)
	}
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return snapshot, fmt.Errorf("parse snapshot: %w", err)
	}
	return snapshot, nil
}

func parseNow(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w: %v", sla.ErrInvalidTimestamp, err)
	}
	return at, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
