// Package completion runs one chat-completion call per batch record.
//
// The [Executor] walks the records strictly in order, one hub call at a
// time, and pairs each decoded response with the index of the record that
// produced it. The first failure aborts the batch: no outputs are returned
// for any record, including those that already succeeded.
package completion
