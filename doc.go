/*
Package actscript compiles plain-text dialogue scripts into scenarios and plays them act by act.

A script is a sequence of blank-line separated blocks. A block headed by `[Name]` opens an act,
any other block is a message whose first line names the role. Messages carry `{placeholder}` or
`{placeholder|default}` tokens filled from the caller's context at runtime, and lines starting with
the directive marker (`%` by default) configure the parser, the scenario, the act or the message.

# Concept

The compiler turns text into plain data (ScenarioData). The runtime walks that data: each call to
Next plays the next queued act, substitutes the running context into its messages and appends them
to the session history. Hosts answer with the model's reply, add token costs and persist the State
snapshot between requests. The Engine in this package never keeps sessions in memory; every
operation takes a State and returns a new one.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/actscript"
		"github.com/aretw0/actscript/pkg/domain"
	)

	func main() {
		// Reads scripts from a Loam repository at ./scripts
		eng, err := actscript.New("./scripts")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		state, err := eng.Start(ctx, "onboarding")
		if err != nil {
			log.Fatal(err)
		}

		for !state.Terminated() {
			var msgs []domain.Message
			state, msgs, err = eng.Next(ctx, state, domain.Context{"name": "Ann"})
			if err != nil {
				log.Fatal(err)
			}
			for _, m := range msgs {
				fmt.Printf("%s: %s\n", m.Role, m.Content)
			}
			// Send msgs to a model, then record its reply.
			state, _ = eng.Answer(ctx, state, domain.Message{Role: "assistant", Content: "..."})
		}
	}
*/
package actscript
