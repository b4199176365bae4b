// Package serialization stores named storages in .born container files.
//
// Container layout (all integers little endian):
//
//	0x00  [4 bytes]  magic "BSTR"
//	0x04  [4 bytes]  format version (uint32)
//	0x08  [4 bytes]  flags (uint32)
//	0x0C  [4 bytes]  reserved
//	0x10  [8 bytes]  JSON header size (uint64)
//	0x18  [8 bytes]  data section size (uint64)
//	0x20  [32 bytes] SHA-256 of the data section
//	0x40  JSON header
//	      zero padding to a 64-byte boundary
//	      data section: storage bytes, back to back
//
// Writing:
//
//	w, err := serialization.NewWriter("weights.born")
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	err = w.WriteStorages(map[string]storage.Storage{"embed": s}, nil)
//
// Reading maps the file read-only; views are zero-copy and LoadStorage
// copies into a fresh storage:
//
//	r, err := serialization.NewMmapReader("weights.born")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	s, err := r.LoadStorage("embed")
package serialization
