package sim

import (
	"errors"

	"droneops-dispatch/internal/telemetry"
)

// MultiWriter fans rows out to several writers. Position rows go to every
// writer; the other row kinds go to the writers implementing their interface.
// Every writer is tried; the errors are joined.
type MultiWriter struct {
	writers []PositionWriter
}

// NewMultiWriter creates a new MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...PositionWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Writers returns the fan-out targets.
func (mw *MultiWriter) Writers() []PositionWriter { return mw.writers }

// Write sends a position row to all writers.
func (mw *MultiWriter) Write(row telemetry.PositionRow) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple position rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.PositionRow) error {
	var errs []error
	for _, w := range mw.writers {
		errs = append(errs, writePositions(w, rows))
	}
	return errors.Join(errs...)
}

// WriteAlert sends an alert row to all alert writers.
func (mw *MultiWriter) WriteAlert(row telemetry.AlertRow) error {
	var errs []error
	for _, w := range mw.writers {
		if aw, ok := w.(AlertWriter); ok {
			errs = append(errs, aw.WriteAlert(row))
		}
	}
	return errors.Join(errs...)
}

// WriteAlerts sends multiple alert rows to all alert writers, using batch if supported.
func (mw *MultiWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchAlertWriter); ok {
			errs = append(errs, bw.WriteAlerts(rows))
			continue
		}
		if aw, ok := w.(AlertWriter); ok {
			for _, r := range rows {
				errs = append(errs, aw.WriteAlert(r))
			}
		}
	}
	return errors.Join(errs...)
}

// WriteMissionEvent sends a mission row to all mission writers.
func (mw *MultiWriter) WriteMissionEvent(row telemetry.MissionEventRow) error {
	var errs []error
	for _, w := range mw.writers {
		if mew, ok := w.(MissionEventWriter); ok {
			errs = append(errs, mew.WriteMissionEvent(row))
		}
	}
	return errors.Join(errs...)
}

// WriteMissionEvents sends multiple mission rows, using batch if supported.
func (mw *MultiWriter) WriteMissionEvents(rows []telemetry.MissionEventRow) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchMissionEventWriter); ok {
			errs = append(errs, bw.WriteMissionEvents(rows))
			continue
		}
		if mew, ok := w.(MissionEventWriter); ok {
			for _, r := range rows {
				errs = append(errs, mew.WriteMissionEvent(r))
			}
		}
	}
	return errors.Join(errs...)
}

// WriteState sends a state row to all state writers.
func (mw *MultiWriter) WriteState(row telemetry.DispatchStateRow) error {
	var errs []error
	for _, w := range mw.writers {
		if sw, ok := w.(StateWriter); ok {
			errs = append(errs, sw.WriteState(row))
		}
	}
	return errors.Join(errs...)
}

// WriteStates sends multiple state rows, using batch if supported.
func (mw *MultiWriter) WriteStates(rows []telemetry.DispatchStateRow) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchStateWriter); ok {
			errs = append(errs, bw.WriteStates(rows))
			continue
		}
		if sw, ok := w.(StateWriter); ok {
			for _, r := range rows {
				errs = append(errs, sw.WriteState(r))
			}
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards the admin status to writers that display it.
func (mw *MultiWriter) SetAdminStatus(addr string, listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(addr, listening)
		}
	}
}

// Close closes every writer that holds resources.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		if c, ok := w.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

func writePositions(w PositionWriter, rows []telemetry.PositionRow) error {
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	var errs []error
	for _, r := range rows {
		errs = append(errs, w.Write(r))
	}
	return errors.Join(errs...)
}
