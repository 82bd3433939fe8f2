// Package stream provides the byte-window, wrapper, and buffer types shared by
// the container codecs.
//
// None of the types here are safe for concurrent use. A SubReader repositions
// the container it reads from before every Read, so two SubReaders over the
// same container must never be read from different goroutines at the same
// time; callers serialize access to the container instead.
package stream
