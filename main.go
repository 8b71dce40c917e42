package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"bracket_stripes/bracket_queue"
	"bracket_stripes/capture_driver"
	"bracket_stripes/composite_renderer"
	"bracket_stripes/databases/sqlite"
	"bracket_stripes/discord_publisher"
	"bracket_stripes/entities"
	"bracket_stripes/gui/progress"
	"bracket_stripes/repositories/capture_sequences"
	"bracket_stripes/utils"
)

const (
	defaultSceneWidth  = 1200
	defaultSceneHeight = 800
)

// Capture parameters
var (
	scenePath     = flag.String("scene", "", "Path or URL of the scene image. A generated gradient is used when empty")
	outputPath    = flag.String("output", "bracket_stripes.jpg", "Output file, .png or .jpg")
	bracketMode   = flag.String("mode", "exposure", "Bracket mode: \"exposure\" or \"duration-iso\"")
	frameFormat   = flag.String("frames", "jpeg", "Frame format delivered by the camera: \"jpeg\" or \"bgra\"")
	frameInterval = flag.Duration("interval", 150*time.Millisecond, "Delay between bracket deliveries")
	shuffle       = flag.Bool("shuffle", false, "Deliver brackets out of request order")
	quality       = flag.Int("quality", 92, "JPEG output quality")
	databasePath  = flag.String("db", "bracket_stripes.db", "Path of the capture history database")
	history       = flag.Int("history", 0, "List the given number of recent captures and exit")
	showProgress  = flag.Bool("progress", true, "Show a progress bar while brackets arrive")
	botToken      = flag.String("token", "", "Discord bot token, publishing is skipped when empty")
	channelID     = flag.String("channel", "", "Discord channel ID to publish to")
)

var envFallbacks = map[string]string{
	"scene":   "SCENE_PATH",
	"output":  "OUTPUT_PATH",
	"mode":    "BRACKET_MODE",
	"frames":  "FRAME_FORMAT",
	"db":      "DATABASE_PATH",
	"token":   "DISCORD_TOKEN",
	"channel": "DISCORD_CHANNEL_ID",
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
		return
	}
	log.Println(".env file loaded successfully")
}

// applyEnvFallbacks fills every flag not given on the command line from its
// environment variable.
func applyEnvFallbacks() {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	for name, env := range envFallbacks {
		value := os.Getenv(env)
		if set[name] || value == "" {
			continue
		}
		if err := flag.Set(name, value); err != nil {
			log.Fatalf("Invalid %s: %v", env, err)
		}
	}

	if *botToken == "YOUR_BOT_TOKEN_HERE" {
		log.Fatalf("Invalid bot token: %v\n"+
			"Did you edit the .env or run the program with -token ?", *botToken)
	}
}

func main() {
	flag.Parse()
	applyEnvFallbacks()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sqliteDB, err := sqlite.Open(ctx, *databasePath)
	if err != nil {
		log.Fatalf("Failed to create sqlite database: %v", err)
	}
	defer sqliteDB.Close()

	sequenceRepo, err := capture_sequences.NewRepository(&capture_sequences.Config{DB: sqliteDB})
	if err != nil {
		log.Fatalf("Failed to create capture sequence repository: %v", err)
	}

	if *history > 0 {
		if err := printHistory(ctx, sequenceRepo, *history); err != nil {
			log.Fatalf("Failed to list captures: %v", err)
		}
		return
	}

	if memory, err := utils.GetMemoryReadable(); err != nil {
		log.Printf("Error reading system memory: %v", err)
	} else {
		log.Printf("Memory: %s free, %s used, %s total", memory.Free, memory.Used, memory.Total)
	}

	mode, err := capture_driver.ParseBracketMode(*bracketMode)
	if err != nil {
		log.Fatalf("Invalid bracket mode: %v", err)
	}

	scene, err := loadScene(*scenePath)
	if err != nil {
		log.Fatalf("Failed to load scene: %v", err)
	}

	driver, err := capture_driver.NewSimulated(capture_driver.SimulatedConfig{
		Scene:         scene,
		FrameFormat:   capture_driver.FrameFormat(strings.ToLower(*frameFormat)),
		FrameInterval: *frameInterval,
		Shuffle:       *shuffle,
	})
	if err != nil {
		log.Fatalf("Failed to create capture driver: %v", err)
	}

	brackets, err := capture_driver.Brackets(mode, driver.Format())
	if err != nil {
		log.Fatalf("Failed to build brackets: %v", err)
	}

	var publisher discord_publisher.Publisher
	if *botToken != "" {
		publisher, err = discord_publisher.New(discord_publisher.Config{
			BotToken:  *botToken,
			ChannelID: *channelID,
			Quality:   *quality,
		})
		if err != nil {
			log.Fatalf("Failed to create Discord publisher: %v", err)
		}
		defer publisher.Close()
	}

	send := func(tea.Msg) {}
	var program *tea.Program
	if *showProgress {
		logFile, err := tea.LogToFile("bracket_stripes.log", "capture")
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()

		program = progress.NewProgram()
		send = program.Send
	}

	queue, err := bracket_queue.New(bracket_queue.Config{
		Driver:      driver,
		Repository:  sequenceRepo,
		BracketMode: string(mode),
		OnProgress: func(p bracket_queue.Progress) {
			send(progress.Update{SequenceID: p.SequenceID, Completed: p.Completed, Total: p.Total, Failed: p.Failed})
		},
	})
	if err != nil {
		log.Fatalf("Failed to create bracket queue: %v", err)
	}

	go forwardShutter(ctx, driver.Shutter(), send)

	job := captureJob{
		queue:      queue,
		repository: sequenceRepo,
		publisher:  publisher,
		brackets:   brackets,
		outputPath: *outputPath,
	}

	if program == nil {
		summary, err := job.run(ctx)
		if err != nil {
			log.Fatalf("Capture failed: %v", err)
		}
		log.Println(summary)
		return
	}

	done := make(chan error, 1)
	go func() {
		summary, err := job.run(ctx)
		send(progress.Done{Err: err, Summary: summary})
		done <- err
	}()

	final, err := program.Run()
	if err != nil {
		log.Fatalf("Progress UI failed: %v", err)
	}
	if m, ok := final.(progress.Model); ok && m.Quitting() {
		stop()
	}

	if err := <-done; err != nil {
		log.Fatalf("Capture failed: %v", err)
	}
	log.Println("Gracefully shutting down.")
}

func loadScene(location string) (image.Image, error) {
	if location == "" {
		log.Printf("No scene given, using a %dx%d gradient", defaultSceneWidth, defaultSceneHeight)
		return utils.GradientScene(defaultSceneWidth, defaultSceneHeight), nil
	}
	return utils.LoadImage(location)
}

func forwardShutter(ctx context.Context, events <-chan entities.ShutterEvent, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			send(event)
		}
	}
}

type captureJob struct {
	queue      bracket_queue.Queue
	repository capture_sequences.Repository
	publisher  discord_publisher.Publisher
	brackets   []entities.Bracket
	outputPath string
}

func (j captureJob) run(ctx context.Context) (string, error) {
	if err := j.queue.Prepare(ctx, j.brackets); err != nil {
		return "", err
	}

	results, err := j.queue.Capture(ctx)
	if err != nil {
		return "", err
	}

	result, ok := <-results
	if !ok {
		return "", errors.New("capture ended before every bracket arrived")
	}
	if result.Err != nil {
		return "", result.Err
	}

	size, err := writeOutput(result.Image, j.outputPath, *quality)
	if err != nil {
		return "", fmt.Errorf("error writing %s: %w", j.outputPath, err)
	}

	if err := j.repository.SetOutputPath(ctx, result.SequenceID, j.outputPath); err != nil {
		log.Printf("Error recording output path: %v", err)
	}

	summary := fmt.Sprintf("Wrote %s (%s), sequence %s", j.outputPath, humanize.IBytes(size), result.SequenceID)

	if j.publisher != nil {
		messageID, err := j.publisher.Publish(ctx, discord_publisher.Post{Image: result.Image, Sequence: result.Sequence})
		if err != nil {
			log.Printf("Error publishing composite: %v", err)
		} else {
			summary += ", published as message " + messageID
		}
	}

	return summary, nil
}

func writeOutput(img *composite_renderer.StripedImage, path string, quality int) (uint64, error) {
	var encode func(w io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encode = img.EncodePNG
	case ".jpg", ".jpeg":
		encode = func(w io.Writer) error { return img.EncodeJPEG(w, quality) }
	default:
		return 0, fmt.Errorf("unsupported output extension %q", filepath.Ext(path))
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	if err = encode(file); err != nil {
		file.Close()
		return 0, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return 0, err
	}

	return uint64(info.Size()), file.Close()
}

func printHistory(ctx context.Context, repo capture_sequences.Repository, limit int) error {
	sequences, err := repo.List(ctx, limit)
	if err != nil {
		return err
	}

	for _, sequence := range sequences {
		status := "ok"
		if !sequence.Succeeded() {
			status = fmt.Sprintf("%d failed", sequence.Failed)
		}
		fmt.Printf("%s  %s  %-12s %dx%d stride %d  %s  %s\n",
			sequence.CreatedAt.Format(time.DateTime), sequence.SequenceID, sequence.BracketMode,
			sequence.Width, sequence.Height, sequence.Stride, status, sequence.OutputPath)
	}

	return nil
}
