/*

Package base provides base data structures and functions for userknn.

The base data structures and functions include:

* Parallel Scheduler

* Random Generator

* Similarity Metrics

* ID Indexing

*/
package base
