// gdsim runs a group discussion in the terminal.
package main

import "github.com/ashureev/speakup-gd/internal/cli"

func main() {
	cli.Execute()
}
