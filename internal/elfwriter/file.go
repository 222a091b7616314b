package elfwriter

import (
	"os"

	"golang.org/x/sys/unix"
)

// objectFileMode is the permission bits for a freshly written relocatable
// object: readable and writable by the owner, readable by everyone else,
// matching how a compiler normally leaves its .o files (not executable,
// unlike the ELF it will eventually be linked into).
const objectFileMode = unix.S_IRUSR | unix.S_IWUSR | unix.S_IRGRP | unix.S_IROTH

// WriteToFile serializes the assembler's accumulated state and writes it to
// path, creating or truncating it as needed. This is the producer API
// spec.md section 6 names write_to_file.
func (a *Assembler) WriteToFile(path string) error {
	out, err := a.Bytes()
	if err != nil {
		return err
	}

	return os.WriteFile(path, out, objectFileMode)
}
