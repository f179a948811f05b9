package actscript_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/actscript"
	"github.com/aretw0/actscript/pkg/adapters/memory"
	"github.com/aretw0/actscript/pkg/domain"
)

// ExampleNew_memory plays a two act script served from memory.
func ExampleNew_memory() {
	loader := memory.NewLoader(map[string]string{
		"greeting": "system:\nYou are a {persona|pirate}.\n\nuser:\nHi, I'm {name}\n\n[Goodbye]\n\nuser:\nBye",
	})

	engine, err := actscript.New("", actscript.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	state, err := engine.Start(ctx, "greeting")
	if err != nil {
		log.Fatal(err)
	}

	state, msgs, err := engine.Next(ctx, state, domain.Context{"name": "Ann"})
	if err != nil {
		log.Fatal(err)
	}
	for _, m := range msgs {
		fmt.Printf("%s: %s\n", m.Role, m.Content)
	}

	state, _ = engine.Answer(ctx, state, domain.Message{Role: "assistant", Content: "Arr, Ann!"})
	state, msgs, _ = engine.Next(ctx, state, nil)
	fmt.Printf("%s: %s\n", msgs[0].Role, msgs[0].Content)

	state, _, _ = engine.Next(ctx, state, nil)
	fmt.Println("terminated:", state.Terminated())

	// Output:
	// system: You are a pirate.
	// user: Hi, I'm Ann
	// user: Bye
	// terminated: true
}

// ExampleEngine_Compile shows the compiled form of a script.
func ExampleEngine_Compile() {
	engine, _ := actscript.New("", actscript.WithLoader(memory.NewLoader(nil)))

	data := engine.Compile("% use title Demo\n\nuser:\n{question|What is Go?}\n\n[Followup]\n% temperature = 0.2\n\nuser:\nTell me more")

	fmt.Println(data.Order)
	fmt.Println(data.Config.Get("title"))
	fmt.Println(data.Acts["default"].Messages[0].Content)
	fmt.Println(data.Acts["Followup"].Config.Get("temperature"))

	// Output:
	// [default Followup]
	// Demo
	// {question}
	// 0.2
}
