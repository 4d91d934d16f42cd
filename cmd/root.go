package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/termviewer/pdftui/internal/config"
	"github.com/termviewer/pdftui/internal/convert"
	"github.com/termviewer/pdftui/internal/debuglog"
	"github.com/termviewer/pdftui/internal/history"
	"github.com/termviewer/pdftui/internal/kitty"
	"github.com/termviewer/pdftui/internal/render"
	"github.com/termviewer/pdftui/internal/signal"
	"github.com/termviewer/pdftui/internal/termproto"
	"github.com/termviewer/pdftui/internal/termsize"
	"github.com/termviewer/pdftui/internal/ui"
	"github.com/termviewer/pdftui/internal/watch"
)

var (
	flagRightToLeft bool
	flagMaxWide     int
	flagFullscreen  bool
	flagReloadDelay int
	flagPrerender   int
	flagWhiteColor  string
	flagBlackColor  string
	flagVersion     bool
)

var rootCmd = &cobra.Command{
	Use:   "pdftui <file.pdf>",
	Short: "A terminal PDF viewer rendering pages as inline images",
	Long: `pdftui renders PDF pages as pixel images directly in the terminal, using
whichever inline-image protocol the terminal supports (Kitty, Sixel, or
iTerm2), and re-renders the open document whenever it changes on disk.`,
	Args: cobra.MaximumNArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().BoolVarP(&flagRightToLeft, "r-to-l", "r", false, "lay out and navigate pages right-to-left")
	rootCmd.Flags().IntVarP(&flagMaxWide, "max-wide", "m", 0, "maximum pages shown side by side (0 = unlimited)")
	rootCmd.Flags().BoolVarP(&flagFullscreen, "fullscreen", "f", false, "hide the title and status chrome")
	rootCmd.Flags().IntVar(&flagReloadDelay, "reload-delay", config.DefaultReloadDelayMS, "debounce window in milliseconds before reloading a changed file")
	rootCmd.Flags().IntVarP(&flagPrerender, "prerender", "p", 0, "pages to prerender around the current page (0 = unlimited)")
	rootCmd.Flags().StringVarP(&flagWhiteColor, "white-color", "w", "", "remap the lightest page color to this CSS hex color")
	rootCmd.Flags().StringVarP(&flagBlackColor, "black-color", "b", "", "remap the darkest page color to this CSS hex color")
	rootCmd.Flags().BoolVar(&flagVersion, "version", false, "print the version and exit")
}

// Execute runs the root command, exiting the process with status 1 on
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flagVersion {
		fmt.Println(Version())
		return nil
	}
	if len(args) != 1 {
		return fmt.Errorf("pdftui: exactly one file argument is required")
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	white := uint32(config.DefaultWhite)
	if flagWhiteColor != "" {
		if white, err = config.ParseColor(flagWhiteColor); err != nil {
			return err
		}
	}
	black := uint32(config.DefaultBlack)
	if flagBlackColor != "" {
		if black, err = config.ParseColor(flagBlackColor); err != nil {
			return err
		}
	}

	logger, closeLog, err := debuglog.Setup()
	if err != nil {
		return fmt.Errorf("debug log: %w", err)
	}
	defer closeLog()

	hist, err := history.Load()
	if err != nil {
		logger.Warn("history load failed, starting empty", "err", err)
		hist = history.New()
	}

	termCap := termproto.Detect()
	logger.Debug("detected terminal capability", "cap", termCap.String())

	cellPxW, cellPxH := 10, 20
	if size, err := termsize.IoctlSize(int(os.Stdout.Fd())); err == nil &&
		size.Cols > 0 && size.Rows > 0 && size.PixelW > 0 && size.PixelH > 0 {
		cellPxW = size.PixelW / size.Cols
		cellPxH = size.PixelH / size.Rows
	}

	watcher, watchEvents, err := watch.New(path, time.Duration(flagReloadDelay)*time.Millisecond)
	if err != nil {
		logger.Warn("filesystem watch unavailable, hot-reload disabled", "err", err)
	} else {
		defer watcher.Close()
	}

	renderIn := make(chan render.Notif, 16)
	renderOut := make(chan render.Result, 16)
	go render.Run(path, render.OpenPDF, renderIn, renderOut, render.Options{
		Prerender: flagPrerender,
		CellPxW:   cellPxW,
		CellPxH:   cellPxH,
		White:     white,
		Black:     black,
	})

	convIn := make(chan convert.Msg, 16)
	convOut := make(chan convert.Result, 16)
	conv := convert.New(termCap, termCap == termproto.CapKitty && kitty.ProbeShm(), flagPrerender)
	go conv.Run(convIn, convOut)

	suspendCh := make(chan struct{}, 1)
	stopSuspend := signal.WatchContinue(suspendCh)
	defer stopSuspend()

	ctx, cancel := signal.NotifyContext()
	defer cancel()

	var uiWatchEvents chan ui.WatchEvent
	if watchEvents != nil {
		uiWatchEvents = make(chan ui.WatchEvent, 4)
		go forwardWatchEvents(watchEvents, uiWatchEvents)
	}

	model := ui.New(ui.Options{
		Path:        path,
		RightToLeft: flagRightToLeft,
		MaxWide:     flagMaxWide,
		Fullscreen:  flagFullscreen,
		Prerender:   flagPrerender,
		CellPxW:     cellPxW,
		CellPxH:     cellPxH,
		TermCap:     termCap,
		RenderIn:    renderIn,
		RenderOut:   renderOut,
		ConvIn:      convIn,
		ConvOut:     convOut,
		WatchEvents: uiWatchEvents,
		SuspendCh:   suspendCh,
		History:     hist,
	})

	var prog *tea.Program
	input := kitty.NewFilterReader(os.Stdin, func(r kitty.Response) {
		if prog != nil {
			prog.Send(ui.KittyResponseMsg{Response: r})
		}
	})

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithInput(input)}
	prog = tea.NewProgram(model, opts...)

	go func() {
		<-ctx.Done()
		prog.Send(ui.QuitRequestedMsg{})
	}()

	_, err = prog.Run()
	return err
}

func forwardWatchEvents(src <-chan watch.Event, dst chan<- ui.WatchEvent) {
	defer close(dst)
	for ev := range src {
		dst <- ui.WatchEvent{Deleted: ev.Kind == watch.Deleted}
	}
}
