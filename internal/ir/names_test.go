package ir

import "testing"

func TestGoNameIDSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "id", want: "ID"},
		{in: "item_id", want: "ItemID"},
		{in: "command_id", want: "CommandID"},
		{in: "clientFlipId", want: "ClientFlipID"},
		{in: "id_value", want: "IdValue"},
		{in: "valid", want: "Valid"},
		{in: "PhoneNumber", want: "PhoneNumber"},
	}

	for _, tc := range tests {
		got := GoName(tc.in)
		if got != tc.want {
			t.Fatalf("GoName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "MyMessage", want: "my_message"},
		{in: "address_book", want: "address_book"},
		{in: "fooBar", want: "foo_bar"},
		{in: "HTTPServer", want: "http_server"},
		{in: "foo.bar-baz", want: "foo_bar_baz"},
		{in: "ABC", want: "abc"},
		{in: "v1", want: "v1"},
	}

	for _, tc := range tests {
		got := SnakeCase(tc.in)
		if got != tc.want {
			t.Fatalf("SnakeCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEnumValueGoName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "MOBILE", want: "Mobile"},
		{in: "PHONE_TYPE_HOME", want: "PhoneTypeHome"},
		{in: "Work", want: "Work"},
	}

	for _, tc := range tests {
		got := EnumValueGoName(tc.in)
		if got != tc.want {
			t.Fatalf("EnumValueGoName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCamelCase(t *testing.T) {
	if got := CamelCase("string_to_int"); got != "StringToInt" {
		t.Fatalf("CamelCase = %q", got)
	}
	if got := CamelCase("tags"); got != "Tags" {
		t.Fatalf("CamelCase = %q", got)
	}
}
