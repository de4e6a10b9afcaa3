// Command meshgate runs the messaging gateway and its companion debug
// tooling.
package main

func main() {
	Execute()
}
