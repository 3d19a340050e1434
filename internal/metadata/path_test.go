package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func scalars(t *testing.T, values []Value) []string {
	t.Helper()
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.Str()
		require.True(t, ok, "expected scalar, got %s", v.Kind())
		out = append(out, s)
	}
	return out
}

func TestResolveBroadcastsOverArrays(t *testing.T) {
	t.Parallel()

	tree := Object(map[string]Value{
		"a": Array(
			Object(map[string]Value{"b": String("1")}),
			Object(map[string]Value{"b": String("2")}),
		),
	})

	got := Resolve(tree, MustParsePath("a.b"))
	require.Equal(t, []string{"1", "2"}, scalars(t, got))
}

func TestResolveSelectsIndex(t *testing.T) {
	t.Parallel()

	tree := Object(map[string]Value{
		"og": Object(map[string]Value{
			"image": Array(
				Object(map[string]Value{"url": String("first")}),
				Object(map[string]Value{"url": String("second")}),
			),
		}),
	})

	require.Equal(t, []string{"second"}, scalars(t, Resolve(tree, MustParsePath("og.image[1].url"))))
	require.Equal(t, []string{"first", "second"}, scalars(t, Resolve(tree, MustParsePath("og.image[*].url"))))
	require.Empty(t, Resolve(tree, MustParsePath("og.image[5].url")))
}

func TestResolveMissingReturnsEmptyNotNil(t *testing.T) {
	t.Parallel()

	tree := Object(map[string]Value{"title": String("T")})

	for _, raw := range []string{"missing", "title.deeper", "og.title"} {
		got := Resolve(tree, MustParsePath(raw))
		require.NotNil(t, got, raw)
		require.Empty(t, got, raw)
	}
	require.NotNil(t, Resolve(Value{}, MustParsePath("x")))
}

func TestResolveTerminalArrayYieldsEachElement(t *testing.T) {
	t.Parallel()

	tree := Object(map[string]Value{
		"description": Array(String("one"), String("two")),
	})

	require.Equal(t, []string{"one", "two"}, scalars(t, Resolve(tree, MustParsePath("description"))))
}

func TestParsePathRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "a..b", "a.[0]", "a.b[x]", "a.b[-2]", "a.b[0", "a]"} {
		_, err := ParsePath(raw)
		require.Error(t, err, raw)
	}

	p, err := ParsePath("og.image[2].width")
	require.NoError(t, err)
	require.Equal(t, "og.image[2].width", p.String())
	require.Equal(t, []Segment{
		{Key: "og", Index: IndexAll},
		{Key: "image", Index: 2},
		{Key: "width", Index: IndexAll},
	}, p.Segments())
}
