// Command tallysync pulls Tally accounting exports, reconstructs the flat
// tag streams into records, and merges them into a relational store.
package main

func main() {
	Execute()
}
