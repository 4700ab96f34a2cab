package supervisor

import (
	"log/slog"

	"github.com/nxadm/tail"
)

// TailLogFile follows path from its current end and forwards each new line
// to logger, for recipes that write their own log file rather than
// accepting inherited stdio. The returned stop function releases the tail.
func TailLogFile(logger *slog.Logger, path string) (stop func(), err error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Whence: 2}, // start at EOF
	})
	if err != nil {
		return nil, err
	}

	go func() {
		for line := range t.Lines {
			if line.Err != nil {
				logger.Warn("log tail error", "path", path, "error", line.Err)
				continue
			}
			logger.Info(line.Text)
		}
	}()

	return func() { _ = t.Stop() }, nil
}
