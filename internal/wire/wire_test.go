package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestRequest_StructRoundTrip(t *testing.T) {
	req, err := NewRequest(KindGenerateNewToken, map[string]string{"username": "alice", "password": "pw"})
	require.NoError(t, err)

	s, err := ToStruct(req)
	require.NoError(t, err)
	assert.Equal(t, "GENERATE_NEW_TOKEN", s.Fields["kind"].GetStringValue())
	assert.Equal(t, "alice", s.Fields["payload"].GetStructValue().Fields["username"].GetStringValue())

	var got Request
	require.NoError(t, FromStruct(s, &got))
	assert.Equal(t, KindGenerateNewToken, got.Kind)
	assert.JSONEq(t, `{"username":"alice","password":"pw"}`, string(got.Payload))
}

func TestResponse_StructRoundTrip(t *testing.T) {
	ok, err := Success(map[string]any{"accessToken": "abc"})
	require.NoError(t, err)
	fail := Failure(401, "unauthorized request")

	for _, resp := range []Response{ok, fail} {
		s, err := ToStruct(resp)
		require.NoError(t, err)

		var got Response
		require.NoError(t, FromStruct(s, &got))
		assert.Equal(t, resp.OK, got.OK)
		if resp.Error != nil {
			require.NotNil(t, got.Error)
			assert.Equal(t, 401, got.Error.Code)
			assert.Equal(t, "unauthorized request", got.Error.Message)
			assert.Nil(t, got.Body)
		} else {
			assert.JSONEq(t, string(resp.Body), string(got.Body))
		}
	}
}

func TestSuccess_NilIsEmptyObject(t *testing.T) {
	resp, err := Success(nil)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, json.RawMessage(`{}`), resp.Body)
}

func TestSuccess_UnmarshalableBody(t *testing.T) {
	_, err := Success(make(chan int))
	require.Error(t, err)
}

func TestFromStruct_Nil(t *testing.T) {
	var r Request
	require.Error(t, FromStruct(nil, &r))
	require.NoError(t, FromStruct(&structpb.Struct{}, &r))
	assert.Empty(t, r.Kind)
}
