package store

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"
)

// --------------------------------------------------------------------------
// Snapshot Streams
// --------------------------------------------------------------------------

// Snapshot format:
//
//	magic "NVKVSNAP", version u8, record count u64   (uncompressed)
//	s2-compressed stream of records:
//	  key length u32, key bytes, value length u32, value bytes
//
// The count is written before compression starts so Import can verify the
// stream was complete.
const (
	snapshotMagic   = "NVKVSNAP"
	snapshotVersion = 1
)

// Export streams every record of s to w in snapshot format. The snapshot
// is a point-in-time copy if no writer runs concurrently; with concurrent
// writers it is fuzzy, like the underlying iteration.
func Export(s Store, w io.Writer) error {
	count, err := s.CountAll()
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, snapshotMagic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{snapshotVersion}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, count); err != nil {
		return err
	}

	zw := s2.NewWriter(w)
	var buf [4]byte
	writeBlob := func(b []byte) error {
		binary.LittleEndian.PutUint32(buf[:], uint32(len(b)))
		if _, err := zw.Write(buf[:]); err != nil {
			return err
		}
		_, err := zw.Write(b)
		return err
	}

	var iterErr error
	err = s.Each(func(key, value []byte) bool {
		if iterErr = writeBlob(key); iterErr != nil {
			return false
		}
		if iterErr = writeBlob(value); iterErr != nil {
			return false
		}
		return true
	})
	if err != nil {
		_ = zw.Close()
		return err
	}
	if iterErr != nil {
		_ = zw.Close()
		return iterErr
	}
	return zw.Close()
}

// Import replays a snapshot stream into s through Put. Existing records
// with the same keys are overwritten.
func Import(s Store, r io.Reader) error {
	header := make([]byte, len(snapshotMagic)+1+8)
	if _, err := io.ReadFull(r, header); err != nil {
		return err
	}
	if string(header[:len(snapshotMagic)]) != snapshotMagic {
		return fmt.Errorf("store: invalid snapshot format: magic mismatch")
	}
	if v := header[len(snapshotMagic)]; v != snapshotVersion {
		return fmt.Errorf("store: unsupported snapshot version: %d (expected %d)", v, snapshotVersion)
	}
	count := binary.LittleEndian.Uint64(header[len(snapshotMagic)+1:])

	zr := s2.NewReader(r)
	var lenBuf [4]byte
	readBlob := func() ([]byte, error) {
		if _, err := io.ReadFull(zr, lenBuf[:]); err != nil {
			return nil, err
		}
		blob := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(zr, blob); err != nil {
			return nil, err
		}
		return blob, nil
	}

	for i := uint64(0); i < count; i++ {
		key, err := readBlob()
		if err != nil {
			return fmt.Errorf("store: truncated snapshot after %d of %d records: %w", i, count, err)
		}
		value, err := readBlob()
		if err != nil {
			return fmt.Errorf("store: truncated snapshot after %d of %d records: %w", i, count, err)
		}
		if err := s.Put(key, value); err != nil {
			return err
		}
	}
	return nil
}
