package display

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// RunLines reads plain-mode commands from r, one per line, until the user
// quits, r is exhausted or ctx is done. Unknown commands are reported on
// errOut and skipped.
func RunLines(ctx context.Context, r io.Reader, errOut io.Writer, ctrl *Controller) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read commands: %w", err)
					}
				default:
				}
				return nil
			}

			cmd, err := ParseLine(line)
			if err != nil {
				fmt.Fprintln(errOut, err)
				continue
			}
			quit, err := ctrl.Apply(ctx, cmd)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}
