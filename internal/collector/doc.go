// Package collector wires the glove pipeline together: serial source, parser,
// recorder, display queue, rate controller, storage and progress.
//
// One producer goroutine reads and parses lines, feeds the recorder directly
// and offers each reading to the bounded display queue. The caller's goroutine
// polls the queue for display and issues commands. A lock file in the data
// root keeps a second collector off the same dataset tree.
package collector
