package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F")
	require.NoError(t, err)
	require.Equal(t, "0x71c7656ec7ab88b098defb751b7401b5f6d8976f", addr.String())

	same, err := ParseAddress("71c7656ec7ab88b098defb751b7401b5f6d8976f")
	require.NoError(t, err)
	require.True(t, addr.Equal(same))
	require.True(t, addr.Equal(&same))
	require.False(t, addr.Equal((*Address)(nil)))
	require.False(t, addr.Equal("0x71c7656ec7ab88b098defb751b7401b5f6d8976f"))

	_, err = ParseAddress("0x1234")
	require.EqualError(t, err, "malformed address '0x1234'")

	require.True(t, IsAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F"))
	require.False(t, IsAddress("alice"))
}

func TestNormalize(t *testing.T) {
	text, err := Normalize("0x71C7656EC7ab88b098defB751B7401B5f6d8976F")
	require.NoError(t, err)
	require.Equal(t, "0x71c7656ec7ab88b098defb751b7401b5f6d8976f", text)

	_, err = Normalize("nope")
	require.EqualError(t, err, "malformed address 'nope'")
}

func TestAddress_TextMarshaling(t *testing.T) {
	addr, err := ParseAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F")
	require.NoError(t, err)

	text, err := addr.MarshalText()
	require.NoError(t, err)

	var other Address
	require.NoError(t, other.UnmarshalText(text))
	require.True(t, addr.Equal(other))
	require.Len(t, other.Bytes(), 20)

	err = other.UnmarshalText([]byte("bad"))
	require.EqualError(t, err, "malformed address 'bad'")
}

func TestSigner_Sign_Recover(t *testing.T) {
	signer, err := Generate()
	require.NoError(t, err)

	digest := Hash([]byte("ballot"))

	sig, err := signer.Sign(digest)
	require.NoError(t, err)

	author, err := Recover(digest, sig)
	require.NoError(t, err)
	require.True(t, author.Equal(signer.GetAddress()))

	require.NoError(t, Verify(signer.GetAddress(), digest, sig))

	other, err := Generate()
	require.NoError(t, err)

	err = Verify(other.GetAddress(), digest, sig)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not match")

	_, err = Recover(digest, []byte{1, 2, 3})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to recover public key")

	_, err = signer.Sign([]byte("short"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to sign")
}

func TestSigner_Marshal(t *testing.T) {
	signer, err := NewSigner("0x" + testKey)
	require.NoError(t, err)

	text, err := signer.MarshalText()
	require.NoError(t, err)
	require.Equal(t, testKey, string(text))

	again, err := NewSigner(string(text) + "\n")
	require.NoError(t, err)
	require.True(t, signer.GetAddress().Equal(again.GetAddress()))
	require.Len(t, signer.GetPublicKey(), 65)

	require.True(t, strings.HasPrefix(signer.GetAddress().String(), "0x"))

	_, err = NewSigner("zz")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid private key")
}
