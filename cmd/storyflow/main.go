// Command storyflow runs, serves, draws and validates storyflow projects.
package main

func main() {
	Execute()
}
