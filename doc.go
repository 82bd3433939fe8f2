// Package vnarc reads and rewrites the archive containers visual novels use
// to bundle their scripts, images, and audio.
//
// Two container families are supported behind one [Archive] type:
//   - MPK: a header plus fixed 256-byte entry records, in revisions 1 and 2.
//     MPK archives can be opened in [ModeUpdate], edited, and saved.
//   - CPK: keystream-obfuscated "@UTF" tables describing the archive and its
//     files. CPK archives are read-only.
//
// The format is detected from the first four bytes of the stream.
//
// # Quick Start
//
// List and extract entries:
//
//	a, err := vnarc.OpenFile("chara.mpk", vnarc.ModeRead)
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	for _, e := range a.Entries() {
//	    fmt.Println(e.ID(), e.Name(), e.UncompressedSize())
//	}
//	e, err := a.Lookup("script/start.nss")
//	if err != nil {
//	    return err
//	}
//	data, err := e.ReadAll()
//
// # Editing
//
// In [ModeUpdate], an entry's payload is buffered in memory on first access.
// Edits touch only that buffer; [Archive.SaveChanges] rebuilds the container
// in a temporary target and copies it over the original stream:
//
//	a, err := vnarc.OpenFile("script.mpk", vnarc.ModeUpdate)
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	e, err := a.Lookup("start.nss")
//	if err != nil {
//	    return err
//	}
//	if err := e.Replace(bytes.NewReader(patched)); err != nil {
//	    return err
//	}
//	return a.SaveChanges()
//
// Entries that were not edited are copied verbatim, so saving an unmodified
// archive reproduces it byte for byte.
//
// # Concurrency
//
// An Archive serializes its own methods, but payload readers returned by
// [Entry.Open] reposition the shared container stream on every read. Reading
// two entries concurrently from different goroutines is not supported; open a
// separate Archive per goroutine instead.
package vnarc
