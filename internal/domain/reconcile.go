package domain

// Merge reconciles a local collection with one fetched from a remote source.
//
// The result is remote in its given order followed by every local quote whose
// Text does not appear in remote. Categories are not compared, so a local quote
// that shares its text with a remote one is dropped in favour of the remote copy.
// Neither input is modified and the result never aliases them.
func Merge(local, remote []Quote) []Quote {
	merged := make([]Quote, 0, len(remote)+len(local))
	merged = append(merged, remote...)

	remoteTexts := make(map[string]struct{}, len(remote))
	for _, q := range remote {
		remoteTexts[q.Text] = struct{}{}
	}

	for _, q := range local {
		if _, taken := remoteTexts[q.Text]; taken {
			continue
		}

		merged = append(merged, q)
	}

	return merged
}
