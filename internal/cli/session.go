package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ListSessions prints stored session IDs with their status.
func ListSessions(ctx context.Context, rt *Runtime, w io.Writer) error {
	ids, err := rt.Sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}

	fmt.Fprintln(w, "Active Sessions:")
	for _, id := range ids {
		line := "- " + id
		if state, err := rt.Sessions.Load(ctx, id); err == nil {
			if desc, err := Describe(ctx, rt.Engine, state); err == nil {
				line += " (" + desc + ")"
			}
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// InspectSession prints the stored state as indented JSON.
func InspectSession(ctx context.Context, rt *Runtime, id string, w io.Writer) error {
	state, err := rt.Sessions.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", id, err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling state: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// RemoveSessions deletes sessions, reporting each one. It fails if any
// removal failed.
func RemoveSessions(ctx context.Context, rt *Runtime, ids []string, w io.Writer) error {
	failed := 0
	for _, id := range ids {
		if err := rt.Sessions.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d session(s) could not be removed", failed)
	}
	return nil
}

// PrintHistory writes the session history, leaving out skipRoles.
func PrintHistory(ctx context.Context, rt *Runtime, id string, skipRoles []string, w io.Writer) error {
	state, err := rt.Sessions.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", id, err)
	}
	text, err := rt.Engine.History(ctx, state, skipRoles...)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(w, "(empty history)")
		return nil
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
