package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lemonade-sdk/lemon-server/pkg/errs"
	"github.com/lemonade-sdk/lemon-server/pkg/events"
	"github.com/lemonade-sdk/lemon-server/pkg/models"
)

const progressInterval = 50 * time.Millisecond

// Pipeline drives the Model Download Pipeline (C9): it resolves which files
// in a hub repository are worth keeping, streams them to destDir, and
// reports progress/completion on the Event Channel while honoring
// pause/cancel signals from the Control Channel.
type Pipeline struct {
	log      *slog.Logger
	hub      *HubClient
	control  *events.ControlChannel
	registry *Registry
}

func NewPipeline(log *slog.Logger, hub *HubClient, control *events.ControlChannel) *Pipeline {
	return &Pipeline{log: log, hub: hub, control: control, registry: NewRegistry()}
}

// Registry exposes the Transfer bookkeeping for /stats and pull-status reads.
func (p *Pipeline) Registry() *Registry { return p.registry }

// Pull downloads the weight and auxiliary files of repo@revision into
// destDir, emitting progress/complete/error frames on w. id identifies the
// Transfer so a later call can pause, cancel, or resume it; resuming simply
// re-invokes Pull with the same id and destDir, which skips files already
// present at their expected size.
func (p *Pipeline) Pull(ctx context.Context, id, displayName, repo, revision, destDir string, kind Kind, w *events.Writer) error {
	signals, unsubscribe := p.control.Watch(id)
	defer unsubscribe()

	files, err := p.hub.ListFiles(ctx, repo, revision)
	if err != nil {
		p.fail(id, w, err)
		return err
	}

	names := make([]string, len(files))
	byName := make(map[string]RepoFile, len(files))
	for i, f := range files {
		names[i] = f.Filename()
		byName[f.Filename()] = f
	}
	weights, configs, templates, licenses, _ := models.GroupFilesByType(names)
	keepNames := append(append(append(weights, configs...), templates...), licenses...)

	var keep []RepoFile
	var total int64
	for _, n := range keepNames {
		f := byName[n]
		keep = append(keep, f)
		total += f.ActualSize()
	}
	if len(keep) == 0 {
		err := fmt.Errorf("no downloadable files found in repository %s", repo)
		p.fail(id, w, err)
		return err
	}

	t := &Transfer{ID: id, DisplayName: displayName, Kind: kind, State: StateActive, TotalBytes: total}
	p.registry.Register(t)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		p.fail(id, w, err)
		return err
	}

	var received int64
	for _, f := range keep {
		select {
		case sig := <-signals:
			switch sig {
			case events.SignalPause:
				p.registry.Update(id, func(t *Transfer) { t.State = StatePaused })
				return &errs.DownloadAborted{Reason: errs.ReasonPaused}
			case events.SignalCancel:
				p.registry.Update(id, func(t *Transfer) { t.State = StateCancelled })
				os.RemoveAll(destDir)
				return &errs.DownloadAborted{Reason: errs.ReasonCancelled}
			}
		default:
		}

		_, err := p.fetchOne(ctx, repo, revision, f, destDir, func(delta int64) {
			received += delta
			pct := float64(0)
			if total > 0 {
				pct = float64(received) / float64(total) * 100
			}
			p.registry.Update(id, func(t *Transfer) { t.BytesReceived = received })
			if w != nil {
				_ = w.Emit(events.KindProgress, events.Progress{
					BytesReceived: received, TotalBytes: total, Percent: pct, DisplayName: displayName,
				})
			}
		})
		if err != nil {
			p.fail(id, w, err)
			return err
		}
	}

	p.registry.Update(id, func(t *Transfer) { t.State = StateCompleted })
	if w != nil {
		_ = w.Emit(events.KindComplete, struct{}{})
	}
	return nil
}

// fetchOne downloads one repo file into destDir/f.Path, skipping it
// entirely if a same-size file is already there (the resume path).
func (p *Pipeline) fetchOne(ctx context.Context, repo, revision string, f RepoFile, destDir string, onBytes func(int64)) (int64, error) {
	dest := filepath.Join(destDir, filepath.FromSlash(f.Path))
	if info, err := os.Stat(dest); err == nil && info.Size() == f.ActualSize() {
		onBytes(f.ActualSize())
		return f.ActualSize(), nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}

	body, _, err := p.hub.DownloadFile(ctx, repo, revision, f.Path)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	buf := make([]byte, 256*1024)
	var written, unreported int64
	lastReport := time.Now()
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			unreported += int64(n)
			if time.Since(lastReport) >= progressInterval {
				onBytes(unreported)
				unreported = 0
				lastReport = time.Now()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, readErr
		}
	}
	if unreported > 0 {
		onBytes(unreported)
	}
	return written, nil
}

func (p *Pipeline) fail(id string, w *events.Writer, err error) {
	p.registry.Update(id, func(t *Transfer) {
		t.State = StateFailed
		t.LastError = err.Error()
	})
	if w != nil {
		_ = w.Emit(events.KindError, events.ErrorPayload{Error: err.Error()})
	}
}

// Cancel sends a cancel signal to an in-flight Pull identified by id.
func (p *Pipeline) Cancel(id string) { p.control.Send(id, events.SignalCancel) }

// Pause sends a pause signal to an in-flight Pull identified by id.
func (p *Pipeline) Pause(id string) { p.control.Send(id, events.SignalPause) }
