// Command gridrun resolves the modules a power-system scenario needs and
// drives them through the lifecycle phases.
package main

func main() {
	Execute()
}
