// Command postlyctl talks to a running Postly server: it imports posts,
// lists posts and categories, composes from the terminal and clears drafts.
package main

func main() {
	Execute()
}
