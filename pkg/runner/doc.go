/*
Package runner implements the interactive loop that plays an actscript session.

It acts as the bridge between the stateless engine facade and a person at a
terminal (or a program speaking JSON lines). For every act it asks for the
placeholder values the session context lacks, plays the act, shows the
produced messages and records the reply under the answer role. The state is
persisted after every step when a session manager is configured.

# Key Components

  - Runner: the loop.
  - IOHandler: decouples how messages are shown and replies are read.
  - TextHandler: line based terminal IO.
  - JSONHandler: JSON-lines IO for headless hosts.
  - SanitizeInput: size and control character filtering shared by every host.

# Usage

	r := runner.NewRunner(
		runner.WithSessions(session.NewManager(store)),
		runner.WithSessionID("user-1"),
	)
	state, err := r.Run(ctx, engine, state)
*/
package runner
