package imap

import (
	"fmt"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/client"
)

// SupportsThread reports whether the server implements THREAD=REFERENCES.
func SupportsThread(c *client.Client) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("client is nil")
	}
	ok, err := c.Support("THREAD=REFERENCES")
	if err != nil {
		return false, fmt.Errorf("failed to check capabilities: %w", err)
	}
	return ok, nil
}

// RunThreadCommand runs the THREAD command and returns the thread structure.
// Uses the REFERENCES algorithm to build thread relationships.
func RunThreadCommand(c *client.Client) ([]*sortthread.Thread, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	threadClient := sortthread.NewThreadClient(c)

	threads, err := threadClient.UidThread(sortthread.References, imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("THREAD command returned error: %w", err)
	}

	return threads, nil
}

// ThreadRoots maps every UID in threads to the UID of its thread root.
func ThreadRoots(threads []*sortthread.Thread) map[uint32]uint32 {
	roots := make(map[uint32]uint32)
	var walk func(t *sortthread.Thread, root uint32)
	walk = func(t *sortthread.Thread, root uint32) {
		if t == nil {
			return
		}
		// A zero Id is a placeholder for a message missing from the mailbox.
		if root == 0 {
			root = t.Id
		}
		if t.Id != 0 {
			roots[t.Id] = root
		}
		for _, child := range t.Children {
			walk(child, root)
		}
	}
	for _, t := range threads {
		walk(t, 0)
	}
	return roots
}
