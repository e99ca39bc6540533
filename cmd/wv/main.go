// Command wv is the CLI entry point for the weave task-graph engine.
package main

func main() {
	Execute()
}
