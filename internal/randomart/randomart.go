// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

// Package randomart renders OpenSSH-style "drunken bishop" visual
// fingerprints for public keys. The art is a pure function of the key
// material, so the same key always produces the same picture.
package randomart

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

const (
	fieldBase = 8
	fieldY    = fieldBase + 1
	fieldX    = fieldBase*2 + 1
)

// augmentation maps visit counts to glyphs; the last two entries mark the
// start and end of the walk.
const augmentation = " .o+=*BOX@%&#/^SE"

// Render returns the randomart block for a public key: a bordered 17x9
// field walked from the SHA-256 digest of the key blob, two bits per step.
// The header carries the key type, the footer the digest name. Every row,
// including the last border, ends with a newline.
func Render(key ssh.PublicKey) string {
	digest := sha256.Sum256(key.Marshal())

	var field [fieldX][fieldY]int
	max := len(augmentation) - 1
	x, y := fieldX/2, fieldY/2
	for _, b := range digest {
		input := int(b)
		// Each byte conveys four 2-bit move directions.
		for i := 0; i < 4; i++ {
			if input&0x1 != 0 {
				x++
			} else {
				x--
			}
			if input&0x2 != 0 {
				y++
			} else {
				y--
			}
			x = clamp(x, 0, fieldX-1)
			y = clamp(y, 0, fieldY-1)
			if field[x][y] < max-2 {
				field[x][y]++
			}
			input >>= 2
		}
	}
	field[fieldX/2][fieldY/2] = max - 1 // start
	field[x][y] = max                   // end

	var sb strings.Builder
	writeBorder(&sb, title(key))
	for row := 0; row < fieldY; row++ {
		sb.WriteByte('|')
		for col := 0; col < fieldX; col++ {
			idx := field[col][row]
			if idx > max {
				idx = max
			}
			sb.WriteByte(augmentation[idx])
		}
		sb.WriteString("|\n")
	}
	writeBorder(&sb, "[SHA256]")
	return sb.String()
}

// Combine renders one art block per key and merges them horizontally:
// row by row, sep between adjacent blocks, each combined row terminated
// with a newline. An empty key set yields the empty string.
func Combine(sep rune, keys []ssh.PublicKey) string {
	if len(keys) == 0 {
		return ""
	}

	blocks := make([][]string, 0, len(keys))
	for _, key := range keys {
		art := strings.TrimRight(Render(key), "\n")
		blocks = append(blocks, strings.Split(art, "\n"))
	}

	var sb strings.Builder
	for row := 0; row < fieldY+2; row++ {
		for i, block := range blocks {
			if i > 0 {
				sb.WriteRune(sep)
			}
			sb.WriteString(block[row])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// writeBorder emits a +----+ border row with the label centered in it.
func writeBorder(sb *strings.Builder, label string) {
	if len(label) > fieldX {
		label = label[:fieldX]
	}
	sb.WriteByte('+')
	i := 0
	for ; i < (fieldX-len(label))/2; i++ {
		sb.WriteByte('-')
	}
	sb.WriteString(label)
	for i += len(label); i < fieldX; i++ {
		sb.WriteByte('-')
	}
	sb.WriteString("+\n")
}

// title builds the header label, preferring "[TYPE bits]" and falling back
// to "[TYPE]" when the size is unknown or the longer form does not fit.
func title(key ssh.PublicKey) string {
	name := typeName(key.Type())
	short := fmt.Sprintf("[%s]", name)
	if bits := keyBits(key); bits > 0 {
		long := fmt.Sprintf("[%s %d]", name, bits)
		if len(long) <= fieldX {
			return long
		}
	}
	return short
}

func typeName(keyType string) string {
	switch keyType {
	case ssh.KeyAlgoRSA:
		return "RSA"
	case ssh.KeyAlgoED25519:
		return "ED25519"
	case ssh.KeyAlgoECDSA256, ssh.KeyAlgoECDSA384, ssh.KeyAlgoECDSA521:
		return "ECDSA"
	case ssh.KeyAlgoSKED25519:
		return "ED25519-SK"
	case ssh.KeyAlgoSKECDSA256:
		return "ECDSA-SK"
	case ssh.KeyAlgoDSA:
		return "DSA"
	}
	return strings.ToUpper(strings.TrimPrefix(keyType, "ssh-"))
}

func keyBits(key ssh.PublicKey) int {
	ck, ok := key.(ssh.CryptoPublicKey)
	if !ok {
		return 0
	}
	switch pub := ck.CryptoPublicKey().(type) {
	case *rsa.PublicKey:
		return pub.N.BitLen()
	case *ecdsa.PublicKey:
		return pub.Params().BitSize
	case ed25519.PublicKey:
		return 8 * ed25519.PublicKeySize
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
