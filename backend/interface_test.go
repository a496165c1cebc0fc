package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceType(t *testing.T) {
	tests := []struct {
		in      string
		want    ResourceType
		wantErr bool
	}{
		{"contacts", Contacts, false},
		{"Contact", Contacts, false},
		{" tasks ", Tasks, false},
		{"file", Files, false},
		{"invoices", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResourceType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResourceTypePaths(t *testing.T) {
	assert.Equal(t, "/contacts", Contacts.ListPath())
	assert.Equal(t, "/contact/42", Contacts.ItemPath("42"))
	assert.Equal(t, "/projects/7", Projects.ItemPath("7"))
	assert.Equal(t, "/tasks/3", Tasks.ItemPath("3"))
}

func TestItemPathEscapesID(t *testing.T) {
	assert.Equal(t, "/projects/a%2Fb", Projects.ItemPath("a/b"))
	assert.Equal(t, "/tasks/1%3Fx=y", Tasks.ItemPath("1?x=y"))
	assert.Equal(t, "/projects/%2E%2E", Projects.ItemPath(".."))
	assert.Equal(t, "/contact/%2E", Contacts.ItemPath("."))
}

func TestMutable(t *testing.T) {
	assert.True(t, Projects.Mutable())
	assert.True(t, Tasks.Mutable())
	assert.False(t, Contacts.Mutable())
	assert.False(t, Files.Mutable())
}

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var rows []Task
	require.NoError(t, json.Unmarshal([]byte(`[{"id":12},{"id":"ab-3"},{"id":null}]`), &rows))
	assert.Equal(t, ID("12"), rows[0].ID)
	assert.Equal(t, ID("ab-3"), rows[1].ID)
	assert.Equal(t, ID(""), rows[2].ID)

	out, err := json.Marshal(rows[:2])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":12},{"id":"ab-3"}]`, string(out))
}

func TestIDKeepsNonCanonicalNumbersAsStrings(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{"42", `42`},
		{"-3", `-3`},
		{"007", `"007"`},
		{"+5", `"+5"`},
		{"0042", `"0042"`},
		{"99999999999999999999", `"99999999999999999999"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			out, err := json.Marshal(Contact{ID: tt.id})
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":`+tt.want+`}`, string(out))

			var back Contact
			require.NoError(t, json.Unmarshal(out, &back))
			assert.Equal(t, tt.id, back.ID)
		})
	}
}

func TestDecodeListEnvelope(t *testing.T) {
	items, err := DecodeList[Task](Tasks, []byte(`{"tasks":[{"id":1,"name":"a"},{"id":2,"name":"b"}],"meta":{}}`))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[1].Name)
}

func TestDecodeListMissingKeyIsEmpty(t *testing.T) {
	items, err := DecodeList[Contact](Contacts, []byte(`{"projects":[{"id":1}]}`))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)

	items, err = DecodeList[Contact](Contacts, []byte(`{"contacts":null}`))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDecodeListBareArray(t *testing.T) {
	items, err := DecodeList[File](Files, []byte(`[{"id":5,"name":"spec.pdf","type":"pdf"}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Type: pdf", items[0].Subtitle())
}

func TestDecodeListInvalid(t *testing.T) {
	_, err := DecodeList[Task](Tasks, []byte(`{"tasks":"nope"}`))
	assert.Error(t, err)
}

func TestDecodeItem(t *testing.T) {
	wrapped, err := DecodeItem[Contact](Contacts, []byte(`{"contact":{"id":42,"first_name":"Ada","last_name":"Lovelace"}}`))
	require.NoError(t, err)
	assert.Equal(t, ID("42"), wrapped.ID)
	assert.Equal(t, "Ada Lovelace", wrapped.Title())

	bare, err := DecodeItem[Contact](Contacts, []byte(`{"id":43,"email":"x@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, ID("43"), bare.ID)
	assert.Equal(t, "x@example.com", bare.Subtitle())

	_, err = DecodeItem[Project](Projects, []byte(`not json`))
	assert.Error(t, err)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, Contacts, TypeOf[Contact]())
	assert.Equal(t, Projects, TypeOf[Project]())
	assert.Equal(t, Files, TypeOf[File]())
	assert.Equal(t, Tasks, TypeOf[Task]())
}
