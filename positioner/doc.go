// Package positioner turns a write to a remote set-point channel into an observable,
// cancellable, timeout-bounded move.
//
// A Positioner owns the channels of one motion axis: a set-point, a readback, and optionally a
// done (moving) flag, an actuate trigger, a stop trigger and an alarm-severity channel. Every
// move creates a fresh status.Status that settles exactly once. Whichever of the following
// reaches it first decides the outcome, all later signals are ignored:
//
//   - the completion strategy of the axis (done flag, put completion or readback tolerance)
//   - an alarm escalation at or above the configured threshold
//   - the move timeout
//   - an explicit Stop, or a newer move superseding the pending one
//
// Completion strategies are selected from the configuration:
//
//   - Put completion (WithPutCompletion): the acknowledgement of the set-point write marks the
//     end of motion. When a done channel exists the flag must also leave and return to the done
//     value.
//   - Done flag (a done channel without put completion): the move finishes on the first done
//     value notified after the set-point write was issued.
//   - Tolerance (no done channel): the move finishes once the readback stays within the
//     tolerance of the target for the settle delay.
//
// Basic usage:
//
//	cfg, err := positioner.NewConfig(
//		positioner.WithDoneValue(0),
//		positioner.WithTimeout(10*time.Second),
//	)
//	if err != nil { ... }
//
//	pos, err := positioner.New("m1", positioner.Channels{
//		Setpoint: setpoint,
//		Readback: readback,
//		Done:     moving,
//		Stop:     stop,
//	}, cfg)
//	if err != nil { ... }
//
//	// blocking
//	final, err := pos.Move(ctx, 1.0)
//
//	// non-blocking
//	st, err := pos.MoveAsync(2.0, positioner.WithMovedCallback(func(st *status.Status[float64]) {
//		...
//	}))
//
// Moves on one Positioner never overlap: starting a move while another is pending settles the
// pending one with ErrSuperseded, which matches ErrCancelled.
package positioner
