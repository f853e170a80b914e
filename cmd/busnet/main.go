// Command busnet runs a virtual bus of simulated microcontrollers bridged to
// TCP clients, and queries a running fabric over its control and event sockets.
package main

func main() {
	Execute()
}
