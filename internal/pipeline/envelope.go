package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/TheMichaelB/myba/internal/compress"
	"github.com/TheMichaelB/myba/internal/gitrepo"
)

// commitEnvelope is everything about one plain commit that Restore needs
// to replay it onto a fresh P: the original author/date/message, plus the
// name-status listing that drove the commit's mirror (spec.md §4.8's
// "commit message = base64(ciphertext(gzip(plain commit %B + name-status
// list)))", extended to also carry author/date so §4.10's "decrypt the
// commit message to recover subject/body and the original author+date"
// has somewhere to read them from).
type commitEnvelope struct {
	Author  string
	Date    string
	Message string
	Entries []gitrepo.NameStatusEntry
}

const envelopeHeaderSep = "\x00"

// encodeCommitEnvelope serializes env, gzips it, encrypts it with the
// empty pepper (commit messages use no per-entry pepper, same as
// manifests), and base64-encodes the result for storage as E's commit
// message text.
func (pc *Context) encodeCommitEnvelope(ctx context.Context, env commitEnvelope) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(env.Author)
	buf.WriteString(envelopeHeaderSep)
	buf.WriteString(env.Date)
	buf.WriteString(envelopeHeaderSep)
	buf.WriteString(env.Message)
	buf.WriteString("\n\n")
	for _, e := range env.Entries {
		if e.RenameFrom != "" {
			fmt.Fprintf(&buf, "%s\t%s\t%s\n", e.Status, e.RenameFrom, e.Path)
		} else {
			fmt.Fprintf(&buf, "%s\t%s\n", e.Status, e.Path)
		}
	}

	gz, err := compress.Gzip(buf.Bytes(), compress.Level)
	if err != nil {
		return "", err
	}
	cipherText, err := pc.Cipher.Encrypt(ctx, "", gz)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(cipherText), nil
}

// decodeCommitEnvelope reverses encodeCommitEnvelope.
func (pc *Context) decodeCommitEnvelope(ctx context.Context, encoded string) (commitEnvelope, error) {
	cipherText, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return commitEnvelope{}, fmt.Errorf("base64 decode commit message: %w", err)
	}
	gz, err := pc.Cipher.Decrypt(ctx, "", cipherText)
	if err != nil {
		return commitEnvelope{}, fmt.Errorf("decrypt commit message: %w", err)
	}
	body, ok := compress.GunzipIfValid(gz)
	if !ok {
		return commitEnvelope{}, fmt.Errorf("commit message is not valid gzip, likely wrong password")
	}

	// The message itself may contain blank lines; entry lines never do, so
	// the last blank line is the header separator.
	sep := strings.LastIndex(string(body), "\n\n")
	if sep < 0 {
		return commitEnvelope{}, fmt.Errorf("malformed commit envelope: missing header separator")
	}
	header, rest := string(body[:sep]), string(body[sep+2:])
	parts := strings.SplitN(header, envelopeHeaderSep, 3)
	if len(parts) != 3 {
		return commitEnvelope{}, fmt.Errorf("malformed commit envelope header")
	}

	env := commitEnvelope{Author: parts[0], Date: parts[1], Message: parts[2]}
	for _, line := range strings.Split(rest, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		switch len(fields) {
		case 2:
			env.Entries = append(env.Entries, gitrepo.NameStatusEntry{Status: fields[0], Path: fields[1]})
		case 3:
			env.Entries = append(env.Entries, gitrepo.NameStatusEntry{Status: fields[0], RenameFrom: fields[1], Path: fields[2]})
		}
	}
	return env, nil
}
