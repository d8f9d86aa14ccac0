package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirective_Join(t *testing.T) {
	b, tr, session := newTestBridge(t, nil)

	require.NoError(t, b.HandleWrite(ControlPath, []byte("/join #rust\n")))

	waitFor(t, func() bool { return tr.Exists("/#rust/send") && tr.Exists("/#rust/receive") },
		"join materializes the channel directory with an empty file pair")

	data, err := tr.ReadAt("/#rust/receive", 0, 16)
	require.NoError(t, err)
	assert.Empty(t, data)

	waitFor(t, func() bool { return len(session.messages()) == 1 }, "JOIN dispatched")
	join := session.messages()[0]
	assert.Equal(t, "JOIN", join.Command)
	assert.Equal(t, []string{"#rust"}, join.Params)
}

func TestDirective_JoinWithoutSlash(t *testing.T) {
	b, tr, session := newTestBridge(t, nil)

	require.NoError(t, b.HandleWrite(ControlPath, []byte("join #rust\n")))

	waitFor(t, func() bool { return tr.Exists("/#rust") }, "bare directive accepted")
	waitFor(t, func() bool { return len(session.messages()) == 1 }, "JOIN dispatched")
}

func TestDirective_JoinListWithKeys(t *testing.T) {
	b, _, session := newTestBridge(t, nil)

	require.NoError(t, b.HandleWrite(ControlPath, []byte("/j #a,#b secret\n")))

	waitFor(t, func() bool { return len(session.messages()) == 2 }, "two JOINs dispatched")
	sent := session.messages()
	assert.Equal(t, []string{"#a", "secret"}, sent[0].Params)
	assert.Equal(t, []string{"#b"}, sent[1].Params)
}

func TestDirective_PartWithReasons(t *testing.T) {
	b, _, session := newTestBridge(t, nil)

	require.NoError(t, b.HandleWrite(ControlPath, []byte("/part #a,#b gone\n")))

	waitFor(t, func() bool { return len(session.messages()) == 2 }, "two PARTs dispatched")
	sent := session.messages()
	assert.Equal(t, "PART", sent[0].Command)
	assert.Equal(t, []string{"#a", "gone"}, sent[0].Params)
	assert.Equal(t, []string{"#b"}, sent[1].Params)
}

func TestDirective_Msg(t *testing.T) {
	b, tr, session := newTestBridge(t, nil)

	require.NoError(t, b.HandleWrite(ControlPath, []byte("/msg bob how are you\n")))

	waitFor(t, func() bool { return len(session.messages()) == 1 }, "PRIVMSG dispatched")
	sent := session.messages()[0]
	assert.Equal(t, "PRIVMSG", sent.Command)
	assert.Equal(t, []string{"bob", "how are you"}, sent.Params)

	waitFor(t, fileContains(tr, "/bob/receive", "12:00:00 me: how are you\n"),
		"own message mirrored locally")
}

func TestDirective_MsgWithoutBodyOnlyMaterializes(t *testing.T) {
	b, tr, session := newTestBridge(t, nil)

	require.NoError(t, b.HandleWrite(ControlPath, []byte("/msg bob\n")))

	waitFor(t, func() bool { return tr.Exists("/bob/send") }, "target directory created")
	assert.Empty(t, session.messages())
}

func TestDirective_UnknownIsIgnored(t *testing.T) {
	b, tr, session := newTestBridge(t, nil)

	require.NoError(t, b.HandleWrite(ControlPath, []byte("/frobnicate all the things\n")))

	entries, err := tr.DirEntries("/")
	require.NoError(t, err)
	assert.Len(t, entries, 3) // send, receive, raw only
	assert.Empty(t, session.messages())
}

func TestDirective_ExtraSpacesTolerated(t *testing.T) {
	b, _, session := newTestBridge(t, nil)

	require.NoError(t, b.HandleWrite(ControlPath, []byte("  /join   #go  \n")))

	waitFor(t, func() bool { return len(session.messages()) == 1 }, "JOIN dispatched")
	assert.Equal(t, []string{"#go"}, session.messages()[0].Params)
}

func TestChannelWrite_SendsTrimmedBody(t *testing.T) {
	b, tr, session := newTestBridge(t, nil)
	require.NoError(t, Materialize(tr, "/#go"))

	require.NoError(t, b.HandleWrite("/#go/send", []byte("  hello there \n")))

	waitFor(t, func() bool { return len(session.messages()) == 1 }, "PRIVMSG dispatched")
	assert.Equal(t, []string{"#go", "hello there"}, session.messages()[0].Params)
}

func TestChannelWrite_EmptyIsNoOp(t *testing.T) {
	b, tr, session := newTestBridge(t, nil)
	require.NoError(t, Materialize(tr, "/#go"))

	require.NoError(t, b.HandleWrite("/#go/send", []byte("   \n")))
	require.NoError(t, b.HandleWrite(ControlPath, []byte("\n")))

	assert.Empty(t, session.messages())
}

func TestWrite_NonSendFileIsIgnored(t *testing.T) {
	b, _, session := newTestBridge(t, nil)

	require.NoError(t, b.HandleWrite("/#go/receive", []byte("x")))
	assert.Empty(t, session.messages())
}
