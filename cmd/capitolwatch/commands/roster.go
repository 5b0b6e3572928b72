package commands

import (
	"fmt"
	"os"

	"capitolwatch-backend/lib/congress"
	"capitolwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	rosterCongress *int
	rosterFind     *string
)

func init() {
	rosterCongress = rosterCmd.Flags().Int("congress", 0, "Congress number, defaults to the current one.")
	rosterFind = rosterCmd.Flags().String("find", "", "Fuzzy-find a single member by name.")
	rootCmd.AddCommand(rosterCmd)
}

func rosterClient() *congress.Client {
	apiKey := os.Getenv("CONGRESS_API_KEY")
	if apiKey == "" {
		serviceutil.Fatal("missing api key", fmt.Errorf("CONGRESS_API_KEY is not set"))
	}
	return congress.NewClient(apiKey)
}

var rosterCmd = &cobra.Command{
	Use:   "roster [--congress <n>] [--find <name>]",
	Short: "Lists members of congress from the congress.gov roster.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := rosterClient()

		members, err := client.GetAllMembers(ctx, *rosterCongress)
		if err != nil {
			serviceutil.Fatal("failed to fetch roster", err)
		}

		if *rosterFind != "" {
			member, score := congress.FindMember(members, *rosterFind)
			cmd.Printf("%s (%s-%s) chamber=%s score=%.3f\n",
				member.Name, member.Party, member.State, member.Chamber, score)
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"Name", "Party", "State", "District", "Chamber"})
		for _, member := range members {
			district := ""
			if member.Chamber == "House" {
				district = fmt.Sprint(member.District)
			}
			t.AppendRow(table.Row{member.Name, member.Party, member.State, district, member.Chamber})
		}
		t.Render()
	},
}
