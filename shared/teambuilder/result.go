// shared/teambuilder/result.go
package teambuilder

// Assignments converts built teams into the persist-ready form: one list of player
// identities per team, in team order.
func Assignments(teams []Team) [][]string {
	out := make([][]string, len(teams))
	for i, t := range teams {
		out[i] = t.IDs()
	}
	return out
}
