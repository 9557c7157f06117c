// Command subscriber prints live config updates for a capability key.
package main

func main() {
	Execute()
}
