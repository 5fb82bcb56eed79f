package domain

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func q(text, category string) Quote {
	return Quote{Text: text, Category: category}
}

func TestMerge_Examples(t *testing.T) {
	tests := []struct {
		name   string
		local  []Quote
		remote []Quote
		want   []Quote
	}{
		{
			name:   "remote wins text collision despite differing category",
			local:  []Quote{q("a", "X")},
			remote: []Quote{q("a", "Y"), q("b", "Z")},
			want:   []Quote{q("a", "Y"), q("b", "Z")},
		},
		{
			name:   "empty remote keeps local",
			local:  []Quote{q("a", "X")},
			remote: []Quote{},
			want:   []Quote{q("a", "X")},
		},
		{
			name:   "empty local yields remote",
			local:  nil,
			remote: []Quote{q("b", "Z"), q("a", "Y")},
			want:   []Quote{q("b", "Z"), q("a", "Y")},
		},
		{
			name:   "both empty",
			local:  nil,
			remote: nil,
			want:   []Quote{},
		},
		{
			name:   "remote order then surviving local order",
			local:  []Quote{q("l1", "L"), q("shared", "L"), q("l2", "L")},
			remote: []Quote{q("r1", "Server"), q("shared", "Server")},
			want: []Quote{
				q("r1", "Server"), q("shared", "Server"),
				q("l1", "L"), q("l2", "L"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.local, tt.remote)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// fixtures builds a handful of local/remote pairs with overlapping texts.
func fixtures() [][2][]Quote {
	var out [][2][]Quote

	for n := 0; n < 5; n++ {
		var local, remote []Quote
		for i := 0; i < n+2; i++ {
			local = append(local, q(fmt.Sprintf("t%d", i), "Local"))
		}
		for i := n; i < 2*n+1; i++ {
			remote = append(remote, q(fmt.Sprintf("t%d", i), "Server"))
		}
		out = append(out, [2][]Quote{local, remote})
	}

	return out
}

func TestMerge_Identity(t *testing.T) {
	for _, f := range fixtures() {
		local, remote := f[0], f[1]

		if diff := cmp.Diff(remote, Merge(nil, remote), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("Merge([], R) != R (-want +got):\n%s", diff)
		}

		if diff := cmp.Diff(local, Merge(local, nil), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("Merge(L, []) != L (-want +got):\n%s", diff)
		}
	}
}

func TestMerge_Membership(t *testing.T) {
	for _, f := range fixtures() {
		local, remote := f[0], f[1]
		merged := Merge(local, remote)

		for _, r := range remote {
			assert.Contains(t, merged, r)
		}

		for _, l := range local {
			if Contains(remote, l.Text) {
				assert.NotContains(t, merged, l, "local quote shadowed by remote must be dropped")
			} else {
				assert.Contains(t, merged, l)
			}
		}
	}
}

func TestMerge_Idempotent(t *testing.T) {
	for _, f := range fixtures() {
		local, remote := f[0], f[1]

		once := Merge(local, remote)
		twice := Merge(once, remote)

		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("Merge is not idempotent (-once +twice):\n%s", diff)
		}
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	local := []Quote{q("a", "X"), q("c", "X")}
	remote := make([]Quote, 1, 8)
	remote[0] = q("b", "Y")

	localCopy := Clone(local)
	remoteCopy := Clone(remote)

	merged := Merge(local, remote)
	merged[0].Text = "mutated"

	assert.Equal(t, localCopy, local)
	assert.Equal(t, remoteCopy, remote)
	assert.Equal(t, Quote{}, remote[:2][1], "spare capacity in remote must not be written")
}
