package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageflow/internal/block"
	"github.com/jackzampolin/pageflow/internal/config"
	"github.com/jackzampolin/pageflow/internal/measuretext"
	"github.com/jackzampolin/pageflow/internal/pagecache"
	"github.com/jackzampolin/pageflow/internal/pagination"
	"github.com/jackzampolin/pageflow/internal/style"
)

var showPages int

var paginateCmd = &cobra.Command{
	Use:   "paginate <file>",
	Short: "Paginate a plain-text file and print a summary",
	Long: `paginate reads a plain-text file, splits it into paragraph blocks
separated by blank lines (a line starting with "# " starts a new
chapter), and runs the lazy pagination engine to completion against the
configured reading layout. Document acquisition is out of the engine's
scope — this loader exists only so the CLI has something to paginate.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaginate,
}

func init() {
	paginateCmd.Flags().IntVar(&showPages, "show", 1, "number of leading pages to print in full")
}

// loadBlocks splits raw text into paragraph TextBlocks. Blank lines
// separate paragraphs; a line starting with "# " begins a new chapter
// and is dropped from the body.
func loadBlocks(path string) ([]block.DocumentBlock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	baseStyle := style.Style{FontSize: 16, LineHeight: 22.4, FontWeight: 400}

	var blocks []block.DocumentBlock
	var para strings.Builder
	chapter := 0
	isFirst := true

	flush := func() {
		text := strings.TrimSpace(para.String())
		para.Reset()
		if text == "" {
			return
		}
		spacingBefore := 12.0
		if isFirst {
			spacingBefore = 0
			isFirst = false
		}
		blocks = append(blocks, &block.TextBlock{
			ChapterIndex:  chapter,
			Text:          text,
			BaseStyle:     baseStyle,
			TextAlign:     style.AlignStart,
			FontWeight:    400,
			FontStyle:     style.FontStyleNormal,
			SpacingBefore: spacingBefore,
			SpacingAfter:  12,
		})
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "# ") {
			flush()
			chapter++
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if para.Len() > 0 {
			para.WriteByte(' ')
		}
		para.WriteString(line)
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return blocks, nil
}

func runPaginate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	path := args[0]
	blocks, err := loadBlocks(path)
	if err != nil {
		return err
	}

	cfgMgr, err := config.NewManager(cfgFile)
	if err != nil {
		return err
	}
	layoutCfg := cfgMgr.Get().Layout()

	dir := cacheDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".pageflow", "cache")
	}
	store, err := pagecache.NewFileStore(dir)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	bookID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(abs)).String()

	engine, err := pagination.Open(ctx, pagination.OpenConfig{
		BookID:   bookID,
		Blocks:   blocks,
		Layout:   layoutCfg,
		Measurer: measuretext.NewBitmapMeasurer(),
		Cache:    store,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	engine.StartBackground(ctx)
	for {
		_, atEnd, err := engine.WaitForGrowth(ctx, engine.PageCount())
		if err != nil {
			return err
		}
		if atEnd {
			break
		}
	}

	fmt.Printf("book:  %s\n", bookID)
	fmt.Printf("pages: %d\n", engine.PageCount())

	for i := 0; i < showPages && i < engine.PageCount(); i++ {
		p, err := engine.Page(ctx, i)
		if err != nil {
			return err
		}
		fmt.Printf("\n--- page %d (chapter %d, chars [%d,%d]) ---\n", i, p.ChapterIndex, p.StartChar, p.EndChar)
		for _, b := range p.Blocks {
			switch {
			case b.Text != nil:
				fmt.Println(b.Text.Text)
			case b.Image != nil:
				fmt.Printf("[image, %d bytes, rendered height %.1f]\n", len(b.Image.Bytes), b.Image.RenderedHeight)
			}
		}
	}
	return nil
}
