package dsl_test

import (
	"fmt"

	"github.com/aretw0/actscript/pkg/dsl"
)

func ExampleBuilder_Text() {
	b := dsl.New("hello")
	b.Default().System("Be brief.")
	b.Act("Bye").User("Bye {name|you}")

	fmt.Println(b.Text())
	// Output:
	// system:
	// Be brief.
	//
	// [Bye]
	//
	// user:
	// Bye {name|you}
}
