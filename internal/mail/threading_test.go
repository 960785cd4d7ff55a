package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubject(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Quarterly report", "quarterly report"},
		{"single re", "Re: Quarterly report", "quarterly report"},
		{"stacked prefixes", "Re: Fwd: RE: Quarterly report", "quarterly report"},
		{"fw prefix", "FW: invoice", "invoice"},
		{"whitespace collapse", "  status   update  ", "status update"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeSubject(tc.input))
		})
	}
}

func TestDeriveThreadKeyPriority(t *testing.T) {
	msg := Message{
		References: []string{"<root@host>", "<mid@host>"},
		InReplyTo:  "<mid@host>",
		Subject:    "Re: Status",
		From:       Address{Address: "a@example.com"},
	}

	// First (root) reference wins over in-reply-to and subject.
	assert.Equal(t, "ref:root@host", DeriveThreadKey(msg))

	msg.References = nil
	assert.Equal(t, "reply:mid@host", DeriveThreadKey(msg))

	msg.InReplyTo = ""
	key := DeriveThreadKey(msg)
	assert.True(t, len(key) > 5 && key[:5] == "subj:")
}

func TestDeriveThreadKeySameRootReference(t *testing.T) {
	root := Message{
		MessageID: "<root@host>",
		Subject:   "Status",
		From:      Address{Address: "a@example.com"},
	}
	reply1 := Message{
		MessageID:  "<r1@host>",
		References: []string{"<root@host>"},
		InReplyTo:  "<root@host>",
		Subject:    "Re: Status",
		From:       Address{Address: "b@example.com"},
	}
	reply2 := Message{
		MessageID:  "<r2@host>",
		References: []string{"<root@host>", "<r1@host>"},
		InReplyTo:  "<r1@host>",
		Subject:    "Re: Status",
		From:       Address{Address: "a@example.com"},
	}

	// Replies anchor to the chain root regardless of arrival order.
	assert.Equal(t, DeriveThreadKey(reply1), DeriveThreadKey(reply2))
	assert.NotEqual(t, DeriveThreadKey(root), DeriveThreadKey(reply1))
}

func TestDeriveThreadKeySubjectFallback(t *testing.T) {
	a := Message{Subject: "Re: Status", From: Address{Address: "a@example.com"}}
	b := Message{Subject: "Status", From: Address{Address: "a@example.com"}}
	c := Message{Subject: "Status", From: Address{Address: "other@example.com"}}

	assert.Equal(t, DeriveThreadKey(a), DeriveThreadKey(b))
	assert.NotEqual(t, DeriveThreadKey(b), DeriveThreadKey(c))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "one two three", Snippet("one\n  two\tthree\n", 80))
	assert.Equal(t, "one tw...", Snippet("one two three", 9))
	assert.Equal(t, "", Snippet("   ", 80))
}

func TestHasContent(t *testing.T) {
	assert.True(t, HasContent("x"))
	assert.False(t, HasContent(" \n\t "))
}
