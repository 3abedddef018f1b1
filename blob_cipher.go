package piivault

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// Blob framing:
//
//	header: [version:1][keyVersion:1][chunkSize:4]
//	chunk:  [flag:1][sealedLen:4][nonce:12][sealed]
//
// Each chunk is sealed independently with a fresh nonce; the header bytes,
// chunk index and flag are bound as additional data, so chunks cannot be
// reordered, dropped or spliced between blobs without failing
// authentication. The final chunk carries flag 0x01 and may be empty; a
// stream that ends before a final chunk is a truncation and fails with
// ErrDecryptionFailed.
const (
	blobFormatVersion byte = 0x01

	blobChunkFlagMore  byte = 0x00
	blobChunkFlagFinal byte = 0x01

	blobHeaderSize = 6

	// DefaultBlobChunkSize is the plaintext chunk size used by Encrypt and
	// EncryptStream. 64 KiB keeps per-chunk overhead negligible while
	// bounding memory for multi-megabyte images.
	DefaultBlobChunkSize = 64 * 1024

	// maxBlobChunkSize bounds the chunk size accepted on decrypt so a
	// corrupted header cannot coerce an oversized allocation.
	maxBlobChunkSize = 4 * 1024 * 1024
)

// BlobCipher provides authenticated encryption of opaque binary payloads
// (signature and selfie images). Same primitive family as FieldCipher, but
// chunked so large payloads stream without losing integrity protection.
// Safe for concurrent use.
type BlobCipher struct {
	aead       cipher.AEAD
	keyVersion uint8
	chunkSize  int
}

// NewBlobCipher builds a BlobCipher over the key material's derived AES-256
// key.
func NewBlobCipher(km *KeyMaterial) (*BlobCipher, error) {
	aead, err := newAEAD(km)
	if err != nil {
		return nil, err
	}
	return &BlobCipher{aead: aead, keyVersion: km.Version(), chunkSize: DefaultBlobChunkSize}, nil
}

// Encrypt seals a full in-memory payload. The payload is treated as a single
// opaque plaintext with no field-level structure.
func (c *BlobCipher) Encrypt(plaintext []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(blobHeaderSize + len(plaintext) + (len(plaintext)/c.chunkSize+1)*(17+c.aead.Overhead()))
	if err := c.EncryptStream(&out, bytes.NewReader(plaintext)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Decrypt opens a payload produced by Encrypt or EncryptStream and returns
// the plaintext, byte-identical to the original.
func (c *BlobCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := c.DecryptStream(&out, bytes.NewReader(ciphertext)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// EncryptStream reads plaintext from src and writes the framed ciphertext to
// dst. Always terminates the stream with a final chunk, so even an empty
// payload produces a verifiable ciphertext.
func (c *BlobCipher) EncryptStream(dst io.Writer, src io.Reader) error {
	header := make([]byte, 0, blobHeaderSize)
	header = append(header, blobFormatVersion, c.keyVersion)
	header = binary.BigEndian.AppendUint32(header, uint32(c.chunkSize))
	if _, err := dst.Write(header); err != nil {
		return fmt.Errorf("%w: writing blob header: %v", ErrEncryptionFailed, err)
	}

	buf := make([]byte, c.chunkSize)
	nonce := make([]byte, gcmNonceSize)
	var index uint64

	for {
		n, rerr := io.ReadFull(src, buf)
		flag := blobChunkFlagMore
		switch rerr {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			flag = blobChunkFlagFinal
		default:
			return fmt.Errorf("%w: reading plaintext: %v", ErrEncryptionFailed, rerr)
		}

		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return fmt.Errorf("%w: nonce generation failed: %v", ErrEncryptionFailed, err)
		}
		sealed := c.aead.Seal(nil, nonce, buf[:n], c.chunkAAD(index, flag))

		frame := make([]byte, 0, 5+gcmNonceSize+len(sealed))
		frame = append(frame, flag)
		frame = binary.BigEndian.AppendUint32(frame, uint32(len(sealed)))
		frame = append(frame, nonce...)
		frame = append(frame, sealed...)
		if _, err := dst.Write(frame); err != nil {
			return fmt.Errorf("%w: writing chunk %d: %v", ErrEncryptionFailed, index, err)
		}

		if flag == blobChunkFlagFinal {
			return nil
		}
		index++
	}
}

// DecryptStream reads framed ciphertext from src and writes the plaintext to
// dst. Any authentication failure, truncation or trailing garbage fails with
// ErrDecryptionFailed; partial plaintext already written to dst must be
// discarded by the caller in that case (Decrypt does this for you).
func (c *BlobCipher) DecryptStream(dst io.Writer, src io.Reader) error {
	header := make([]byte, blobHeaderSize)
	if _, err := io.ReadFull(src, header); err != nil {
		return fmt.Errorf("%w: blob header missing or truncated", ErrDecryptionFailed)
	}
	if header[0] != blobFormatVersion {
		return fmt.Errorf("%w: unsupported blob format version %d", ErrDecryptionFailed, header[0])
	}
	if header[1] != c.keyVersion {
		return fmt.Errorf("%w: blob key version %d does not match configured version %d",
			ErrDecryptionFailed, header[1], c.keyVersion)
	}
	chunkSize := binary.BigEndian.Uint32(header[2:])
	if chunkSize == 0 || chunkSize > maxBlobChunkSize {
		return fmt.Errorf("%w: invalid blob chunk size %d", ErrDecryptionFailed, chunkSize)
	}

	frameHeader := make([]byte, 5+gcmNonceSize)
	var index uint64

	for {
		if _, err := io.ReadFull(src, frameHeader); err != nil {
			return fmt.Errorf("%w: blob truncated before final chunk", ErrDecryptionFailed)
		}
		flag := frameHeader[0]
		if flag != blobChunkFlagMore && flag != blobChunkFlagFinal {
			return fmt.Errorf("%w: invalid chunk flag %#x", ErrDecryptionFailed, flag)
		}
		sealedLen := binary.BigEndian.Uint32(frameHeader[1:5])
		if sealedLen > chunkSize+uint32(c.aead.Overhead()) {
			return fmt.Errorf("%w: chunk %d length %d exceeds chunk size", ErrDecryptionFailed, index, sealedLen)
		}
		nonce := frameHeader[5:]

		sealed := make([]byte, sealedLen)
		if _, err := io.ReadFull(src, sealed); err != nil {
			return fmt.Errorf("%w: blob truncated inside chunk %d", ErrDecryptionFailed, index)
		}

		plaintext, err := c.aead.Open(nil, nonce, sealed, c.chunkAAD(index, flag))
		if err != nil {
			return fmt.Errorf("%w: chunk %d failed authentication", ErrDecryptionFailed, index)
		}
		if _, err := dst.Write(plaintext); err != nil {
			return fmt.Errorf("writing plaintext chunk %d: %w", index, err)
		}

		if flag == blobChunkFlagFinal {
			// Trailing bytes after the final chunk mean the ciphertext was
			// spliced or corrupted.
			var trailer [1]byte
			if n, _ := src.Read(trailer[:]); n != 0 {
				return fmt.Errorf("%w: trailing data after final chunk", ErrDecryptionFailed)
			}
			return nil
		}
		index++
	}
}

func (c *BlobCipher) chunkAAD(index uint64, flag byte) []byte {
	aad := make([]byte, 0, 11)
	aad = append(aad, blobFormatVersion, c.keyVersion, flag)
	aad = binary.BigEndian.AppendUint64(aad, index)
	return aad
}
