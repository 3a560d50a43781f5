// Command wrwatch reports new speedrun world records for the configured
// games and categories.
package main

func main() {
	Execute()
}
