package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paperdeck/paperdeck/internal/store"
	"github.com/paperdeck/paperdeck/internal/views"
)

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Manage saved views",
}

var viewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved views",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeStore, err := openViewService()
		if err != nil {
			return err
		}
		defer closeStore()

		all, err := svc.All()
		if err != nil {
			return fmt.Errorf("list saved views: %w", err)
		}
		if len(all) == 0 {
			fmt.Println("No saved views.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tRULES\tSORT\tSIDEBAR\tDASHBOARD")
		for _, v := range all {
			sort := v.SortField
			if v.SortReverse {
				sort = "-" + sort
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%v\t%v\n",
				v.ID, v.Name, len(v.FilterRules), sort, v.ShowInSidebar, v.ShowOnDashboard)
		}
		return w.Flush()
	},
}

var viewsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid view ID %q", args[0])
		}

		svc, closeStore, err := openViewService()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := svc.Delete(id); err != nil {
			return fmt.Errorf("delete saved view: %w", err)
		}
		fmt.Printf("Deleted saved view %d\n", id)
		return nil
	},
}

func openViewService() (*views.Service, func(), error) {
	s, err := store.Open(cfg.Data.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := s.InitSchema(); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("init schema: %w", err)
	}
	return views.NewService(s, logger), func() { s.Close() }, nil
}

func init() {
	rootCmd.AddCommand(viewsCmd)
	viewsCmd.AddCommand(viewsListCmd)
	viewsCmd.AddCommand(viewsDeleteCmd)
}
