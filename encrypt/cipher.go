/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package encrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// blockSize is the 16-byte unit the payload counter advances by, per
// §4.4's "image_offset >> 4" block index.
const blockSize = 16

// PayloadCipher is the AES-CTR stream over an image's plaintext
// payload, keyed by the unwrapped symmetric key and addressed by
// absolute offset from the start of the payload rather than by a
// running stream position, so hashimg's chunked reader (which may
// revisit or skip around the payload) can drive it in any chunking;
// the swap engine moves ciphertext as plain bytes and does not use
// it. Grounded on
// artifact/sec.EncryptAES's CTR-over-a-reader shape, generalized from a
// stream-from-zero nonce to the image-offset-derived block counter the
// spec requires.
type PayloadCipher struct {
	block cipher.Block
}

// NewPayloadCipher builds a PayloadCipher from an AES-128 or AES-256
// key (the two widths §3's ENCRYPTED_AES128/256 flags name).
func NewPayloadCipher(key []byte) (*PayloadCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, mcuerr.Wrapf(err, "encrypt: constructing payload cipher")
	}
	return &PayloadCipher{block: block}, nil
}

// nonceFor builds the 16-byte CTR nonce for the 16-byte-aligned block
// containing payloadOffset: 12 zero bytes followed by the big-endian
// block index, per §4.4.
func nonceFor(payloadOffset int) ([16]byte, int) {
	blockIndex := payloadOffset / blockSize
	intraBlock := payloadOffset % blockSize

	var nonce [16]byte
	binary.BigEndian.PutUint32(nonce[12:], uint32(blockIndex))
	return nonce, intraBlock
}

// CryptAt XORs buf in place against the AES-CTR keystream starting at
// absolute payload byte offset payloadOffset. CTR is its own inverse,
// so the same call encrypts plaintext or decrypts ciphertext.
func (p *PayloadCipher) CryptAt(payloadOffset int, buf []byte) {
	nonce, intraBlock := nonceFor(payloadOffset)
	stream := cipher.NewCTR(p.block, nonce[:])

	if intraBlock > 0 {
		// Advance the keystream to the requested byte within its
		// 16-byte block before touching buf.
		discard := make([]byte, intraBlock)
		stream.XORKeyStream(discard, discard)
	}
	stream.XORKeyStream(buf, buf)
}

// DecryptChunk implements hashimg.Decryptor, letting a PayloadCipher be
// handed directly to hashimg.Digest to decrypt an encrypted secondary
// slot's payload on the fly while hashing it.
func (p *PayloadCipher) DecryptChunk(payloadOffset int, buf []byte) {
	p.CryptAt(payloadOffset, buf)
}
