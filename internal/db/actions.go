package db

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/course-crawler/internal/common"
	"github.com/dtnitsch/course-crawler/models"
	"github.com/dtnitsch/course-crawler/pkg/checkpoint"
)

// CoursesAction lists stored courses, highest heat first unless --sort says otherwise.
func CoursesAction(c *cli.Context) error {
	cfg, store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	q := models.CourseQuery{
		Status: models.Status(c.String("status")),
		Tag:    c.String("tag"),
		Search: c.String("search"),
		Level:  c.Int("level"),
		Sort:   c.String("sort"),
		Limit:  c.Int("limit"),
	}
	if c.Bool("synthetic-only") {
		yes := true
		q.Synthetic = &yes
	}

	courses, total, err := store.Courses.ListCourses(c.Context, q)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	if len(courses) == 0 {
		fmt.Printf("No courses found in %s store\n", cfg.Store.Driver)
		return nil
	}

	fmt.Printf("%-28s %-40s %-5s %-5s %-16s %-10s %-4s\n",
		"ID", "Title", "Level", "Heat", "Status", "Rarity", "Syn")
	fmt.Println(strings.Repeat("-", 116))

	for _, co := range courses {
		syn := ""
		if co.Synthetic {
			syn = "yes"
		}
		fmt.Printf("%-28s %-40s %-5d %-5d %-16s %-10s %-4s\n",
			co.ID,
			truncate(co.Title, 40),
			co.Level,
			co.Heat,
			co.Status,
			co.RarityLevel,
			syn,
		)
	}

	fmt.Printf("\nShowing %d of %d courses\n", len(courses), total)
	fmt.Printf("\nTip: Use 'course-crawler db course <id>' to see one record\n")
	return nil
}

// CourseAction prints one stored course as YAML.
func CourseAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("course id required. Usage: course-crawler db course <id>")
	}

	_, store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	course, err := store.Courses.GetCourse(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(course)
	if err != nil {
		return fmt.Errorf("failed to encode course: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

// RunsAction lists crawl run summaries, newest first.
func RunsAction(c *cli.Context) error {
	cfg, store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if store.Runs == nil {
		return fmt.Errorf("run history is kept in the sqlite store only (driver is %q); see %s/summary.yaml",
			cfg.Store.Driver, cfg.Checkpoint.Dir)
	}

	runs, err := store.Runs.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-36s %-20s %-12s %-6s %-6s %-6s %-8s %-8s %-8s %-6s\n",
		"Run", "Started", "Phase", "Pages", "Synth", "Dedup", "Enriched", "Inserted", "Updated", "Failed")
	fmt.Println(strings.Repeat("-", 130))

	for _, r := range runs {
		fmt.Printf("%-36s %-20s %-12s %-6d %-6d %-6d %-8d %-8d %-8d %-6d\n",
			r.RunID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Phase,
			r.PagesTotal,
			r.PagesSynthetic,
			r.Deduplicated,
			r.Enriched,
			r.Inserted,
			r.Updated,
			r.FailedChunks,
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))
	return nil
}

// CheckpointsAction lists the progress markers a resumed crawl would skip.
func CheckpointsAction(c *cli.Context) error {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}

	cps, damaged, err := checkpoint.New(cfg.Checkpoint.Dir).Checkpoints()
	if err != nil {
		return fmt.Errorf("failed to read checkpoints: %w", err)
	}
	if len(cps) == 0 && len(damaged) == 0 {
		fmt.Printf("No pending checkpoints in %s\n", cfg.Checkpoint.Dir)
		fmt.Printf("\nCompleted runs archive theirs under %s/run-<run_id>\n", cfg.Checkpoint.Dir)
		return nil
	}

	fmt.Printf("%-6s %-6s %-8s %-10s %-20s\n", "Page", "Total", "Records", "Synthetic", "Written")
	fmt.Println(strings.Repeat("-", 54))
	for _, cp := range cps {
		fmt.Printf("%-6d %-6d %-8d %-10t %-20s\n",
			cp.Page, cp.TotalPages, cp.RecordCount, cp.Synthetic,
			cp.WrittenAt.Local().Format("2006-01-02 15:04:05"))
	}
	for _, d := range damaged {
		fmt.Printf("%-6d damaged, will be crawled again: %v\n", d.Page, d.Err)
	}
	fmt.Printf("\nDelete %s to start the next crawl from page 1\n", cfg.Checkpoint.Dir)
	return nil
}
