package account

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordVersion1 = 1

const (
	flagEmailVerified = 1 << 0
	flagMFAEnabled    = 1 << 1
)

// Encode serializes an account record as a versioned big-endian binary
// blob. The layout is append-only: new fields require a version bump.
func Encode(a *Account) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(recordVersion1)

	var flags byte
	if a.EmailVerified {
		flags |= flagEmailVerified
	}
	if a.MFAEnabled {
		flags |= flagMFAEnabled
	}
	buf.WriteByte(flags)
	buf.WriteByte(byte(a.MFAMethod))
	buf.WriteByte(byte(a.SetupMethod))

	for _, s := range []string{a.ID, a.Email, a.Name, a.Role, a.PasswordHash, a.PhoneNumber} {
		if err := writeString(&buf, s); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, a.FailedAttempts); err != nil {
		return nil, err
	}
	for _, v := range []int64{a.LockedUntil, a.TOTPLastCounter, a.LastLoginAt, a.CreatedAt} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}

	if err := writeBytes(&buf, a.TOTPSecret); err != nil {
		return nil, err
	}

	if len(a.BackupCodes) > 255 {
		return nil, errors.New("backup code count exceeded")
	}
	buf.WriteByte(byte(len(a.BackupCodes)))
	for _, bc := range a.BackupCodes {
		if err := writeString(&buf, bc.Code); err != nil {
			return nil, err
		}
		if bc.Used {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}

	for _, p := range []PendingCode{a.EmailPending, a.SMSPending} {
		if err := writePending(&buf, p); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode].
func Decode(data []byte) (*Account, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersion1 {
		return nil, errors.New("invalid account record version")
	}

	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	method, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	setup, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	a := &Account{
		EmailVerified: flags&flagEmailVerified != 0,
		MFAEnabled:    flags&flagMFAEnabled != 0,
		MFAMethod:     MFAMethod(method),
		SetupMethod:   MFAMethod(setup),
	}

	for _, dst := range []*string{&a.ID, &a.Email, &a.Name, &a.Role, &a.PasswordHash, &a.PhoneNumber} {
		if *dst, err = readString(r); err != nil {
			return nil, err
		}
	}

	if err := binary.Read(r, binary.BigEndian, &a.FailedAttempts); err != nil {
		return nil, err
	}
	for _, dst := range []*int64{&a.LockedUntil, &a.TOTPLastCounter, &a.LastLoginAt, &a.CreatedAt} {
		if err := binary.Read(r, binary.BigEndian, dst); err != nil {
			return nil, err
		}
	}

	if a.TOTPSecret, err = readBytes(r); err != nil {
		return nil, err
	}

	count, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if count > 0 {
		a.BackupCodes = make([]BackupCode, 0, count)
		for i := 0; i < int(count); i++ {
			code, err := readString(r)
			if err != nil {
				return nil, err
			}
			used, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			a.BackupCodes = append(a.BackupCodes, BackupCode{Code: code, Used: used == 1})
		}
	}

	for _, dst := range []*PendingCode{&a.EmailPending, &a.SMSPending} {
		if *dst, err = readPending(r); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("account field length exceeded")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func writeBytes(buf *bytes.Buffer, b []byte) error {
	if len(b) > 65535 {
		return errors.New("account field length exceeded")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(b))); err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func writePending(buf *bytes.Buffer, p PendingCode) error {
	if !p.Present() {
		buf.WriteByte(0)
		return nil
	}
	buf.WriteByte(1)
	buf.Write(p.Digest[:])
	buf.Write(p.Salt[:])
	return binary.Write(buf, binary.BigEndian, p.ExpiresAt)
}

func readPending(r *bytes.Reader) (PendingCode, error) {
	var p PendingCode

	present, err := r.ReadByte()
	if err != nil {
		return p, err
	}
	if present == 0 {
		return p, nil
	}
	if _, err := io.ReadFull(r, p.Digest[:]); err != nil {
		return p, err
	}
	if _, err := io.ReadFull(r, p.Salt[:]); err != nil {
		return p, err
	}
	if err := binary.Read(r, binary.BigEndian, &p.ExpiresAt); err != nil {
		return p, err
	}
	return p, nil
}
