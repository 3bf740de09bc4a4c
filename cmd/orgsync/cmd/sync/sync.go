package sync

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/orgsync/internal/appcontext"
	"github.com/agentstation/orgsync/internal/cmd/output"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

// Execute runs the sync command.
func Execute(ctx context.Context, app appcontext.Interface, flags *Flags, in io.Reader, out io.Writer) error {
	ctx = logging.WithLogger(ctx, app.Logger())
	settings := app.Settings()
	if flags.Target != "" {
		settings.Target = strings.ToLower(flags.Target)
	}
	if flags.Sequential {
		settings.Sequential = true
	}
	if flags.OutputDir != "" {
		settings.OutputDir = flags.OutputDir
	}

	client, err := app.Client(ctx, true)
	if err != nil {
		return &errors.ProcessError{Operation: "configure sync", Command: "sync", Err: err}
	}

	p := &printer{
		w:      out,
		format: output.DetectFormat(app.OutputFormat()),
		quiet:  app.Quiet(),
	}

	// Single pass when nothing needs confirming
	if flags.DryRun || flags.AutoApprove {
		result, err := client.Sync(ctx,
			pkgsync.WithDryRun(flags.DryRun),
			pkgsync.WithAutoApprove(flags.AutoApprove),
			pkgsync.WithRefetch(flags.Refetch),
		)
		if err != nil {
			return &errors.ProcessError{Operation: "sync directory", Command: "sync", Err: err}
		}
		return p.result(result)
	}

	// Plan
	plan, err := client.Sync(ctx, pkgsync.WithDryRun(true), pkgsync.WithRefetch(flags.Refetch))
	if err != nil {
		return &errors.ProcessError{Operation: "plan sync", Command: "sync", Err: err}
	}
	if err := p.result(plan); err != nil {
		return err
	}
	if !plan.HasChanges() {
		return nil
	}

	confirmed, err := ConfirmChanges(in, out)
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	// Apply against the extracts the plan used
	result, err := client.Sync(ctx)
	if err != nil {
		return &errors.ProcessError{Operation: "apply changes", Command: "sync", Err: err}
	}
	return p.result(result)
}

// ConfirmChanges asks whether to apply the planned changes. Anything but
// y or yes, including end of input, declines.
func ConfirmChanges(in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprint(out, "Apply these changes? (y/N): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.WrapIO("read", "stdin", err)
	}
	response := strings.ToLower(strings.TrimSpace(line))
	if response != "y" && response != "yes" {
		fmt.Fprintln(out, "Sync cancelled")
		return false, nil
	}
	return true, nil
}
