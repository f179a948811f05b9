/*
Package dsl builds dialogue scripts from Go code.

It is a fluent alternative to writing script text by hand, useful for
generated scripts and tests. The builder renders ordinary script source, so
the result compiles exactly like a file on disk.

Example usage:

	script, err := dsl.New("greeting").
		Use("title", "Greeting").
		Default().
		System("You greet people by name.").
		User("Hi, I am {name|a stranger}").
		Act("Farewell").
		Describe("closing words").
		Flag("loop").
		Assistant("Goodbye, {name}!").
		Build()
	if err != nil {
		log.Fatal(err)
	}

	loader, _ := memory.NewFromScripts(*script)
	engine, _ := actscript.New("", actscript.WithLoader(loader))
*/
package dsl
