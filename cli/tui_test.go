package cli

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fahmaliyi/wifivault/credentials"
	"github.com/fahmaliyi/wifivault/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func browseStore(t *testing.T) *credentials.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.bin")
	payload := &vault.Payload{
		Metadata: map[string]any{"version": "2.0"},
		Centers: []any{
			map[string]any{"Codi": "08012345", "Centre": "Escola Alfa", "Usuari": "alfa", "Contrasenya": "pw-alfa"},
			map[string]any{"Codi": "08054321", "Centre": "Institut Beta", "Usuari": "beta", "Contrasenya": "pw-beta"},
			map[string]any{"Codi": "17000001", "Centre": "Escola Gamma", "Usuari": "gamma", "Contrasenya": "pw-gamma"},
		},
	}
	params := &vault.Params{KDF: vault.KDFScrypt, AEAD: vault.AEADAESGCM, N: 1024, R: 8, P: 1}
	require.NoError(t, vault.NewVault(path, params).Save(payload, []byte("pw")))

	store := credentials.NewStore(path, nil)
	require.NoError(t, store.Load([]byte("pw")))
	return store
}

func send(m model, msg tea.Msg) (model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func typeText(m model, s string) model {
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func stubClipboard(t *testing.T) *[]string {
	t.Helper()
	var copied []string
	orig := writeClipboard
	writeClipboard = func(s string) error {
		copied = append(copied, s)
		return nil
	}
	t.Cleanup(func() { writeClipboard = orig })
	return &copied
}

func TestBrowseFilters(t *testing.T) {
	m := newModel(browseStore(t), 0)
	assert.Len(t, m.results, 3)

	m = typeText(m, "escola")
	require.Len(t, m.results, 2)
	assert.Equal(t, "Escola Alfa", m.results[0].CenterName)
	assert.Equal(t, "Escola Gamma", m.results[1].CenterName)

	m = typeText(m, " gam")
	require.Len(t, m.results, 1)
	assert.Equal(t, "17000001", m.results[0].CenterCode)

	m = typeText(m, "zzz")
	assert.Empty(t, m.results)
	assert.Contains(t, m.View(), "No centers match")
}

func TestBrowseCursorAndDetail(t *testing.T) {
	m := newModel(browseStore(t), 0)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.cursor)
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.cursor)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, stateDetail, m.state)
	assert.Equal(t, "08054321", m.selected.CenterCode)
	view := m.View()
	assert.Contains(t, view, "Institut Beta")
	assert.Contains(t, view, "Username: beta")
	assert.NotContains(t, view, "pw-beta")

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateList, m.state)
	assert.Nil(t, m.selected)
}

func TestBrowseCopy(t *testing.T) {
	copied := stubClipboard(t)
	m := newModel(browseStore(t), 0)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Nil(t, cmd)
	assert.Equal(t, []string{"pw-beta"}, *copied)
	assert.Equal(t, "Password copied!", m.msg)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Equal(t, []string{"pw-beta", "pw-beta"}, *copied)
}

func TestBrowseClipboardClear(t *testing.T) {
	copied := stubClipboard(t)
	m := newModel(browseStore(t), time.Minute)

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.NotNil(t, cmd)
	assert.Contains(t, m.msg, "clears in 1m0s")

	m, _ = send(m, clipboardClearedMsg{seq: m.copySeq})
	assert.Equal(t, []string{"pw-alfa", ""}, *copied)
	assert.Equal(t, "Clipboard cleared", m.msg)
	assert.False(t, m.pending)

	_, cmd = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"pw-alfa", ""}, *copied)
}

func TestBrowseQuitClearsPendingCopy(t *testing.T) {
	for _, quitKey := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		copied := stubClipboard(t)
		m := newModel(browseStore(t), time.Minute)

		m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlY})
		_, cmd := send(m, tea.KeyMsg{Type: quitKey})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Equal(t, []string{"pw-alfa", ""}, *copied)
	}
}

func TestBrowseQuitFromDetailClearsPendingCopy(t *testing.T) {
	copied := stubClipboard(t)
	m := newModel(browseStore(t), time.Minute)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	_, cmd := send(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"pw-alfa", ""}, *copied)
}

func TestBrowseStaleClearIsIgnored(t *testing.T) {
	copied := stubClipboard(t)
	m := newModel(browseStore(t), time.Minute)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	first := m.copySeq
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlY})

	m, _ = send(m, clipboardClearedMsg{seq: first})
	assert.Equal(t, []string{"pw-alfa", "pw-beta"}, *copied)
	assert.True(t, m.pending)

	m, _ = send(m, clipboardClearedMsg{seq: m.copySeq})
	assert.Equal(t, []string{"pw-alfa", "pw-beta", ""}, *copied)
	assert.False(t, m.pending)
}

func TestBrowseQuit(t *testing.T) {
	m := newModel(browseStore(t), 0)
	_, cmd := send(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
