package app

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canvai/canvai/internal/canvas"
	"github.com/canvai/canvai/internal/host"
	"github.com/canvai/canvai/internal/logging"
	"github.com/canvai/canvai/internal/provider"
	"github.com/canvai/canvai/internal/session"
)

// ImageService turns a source image into a grid of bound host canvases.
// Network and pixel work happen on the worker lane; canvas allocation and
// binding happen on the main lane; disk persistence goes back to a worker.
type ImageService struct {
	registry *session.Registry
	client   provider.Client
	store    *canvas.Store
	sched    host.Scheduler
	timeout  time.Duration
	log      logging.Logger

	persists sync.WaitGroup
}

func NewImageService(registry *session.Registry, client provider.Client, store *canvas.Store, sched host.Scheduler, timeout time.Duration, log logging.Logger) *ImageService {
	return &ImageService{registry: registry, client: client, store: store, sched: sched, timeout: timeout, log: log}
}

// Wait blocks until every handed-off tile persist has finished. Called
// during shutdown so disk writes and mirror uploads are not cut off mid-job.
func (s *ImageService) Wait() {
	s.persists.Wait()
}

// Delivery receives the freshly bound canvases in row-major order, or the
// error that stopped the pipeline. It runs on the main thread exactly once.
type Delivery func(canvases []host.Canvas, err error)

// CreateFromURL downloads the image at url, scales it to a cols x rows tile
// grid and materializes one canvas per tile.
func (s *ImageService) CreateFromURL(url string, cols, rows int, reg host.CanvasRegistry, deliver Delivery) {
	s.sched.RunAsync(func() {
		ctx := context.Background()

		img, err := s.client.DownloadImage(ctx, url)
		if err != nil {
			s.fail(ctx, deliver, fmt.Errorf("image download error: %w", err))
			return
		}
		s.tileAndBind(ctx, img, cols, rows, reg, deliver)
	})
}

// Generate asks the provider for a prompt-driven image sized to the grid,
// then proceeds as CreateFromURL. Generation is billed per request, so it
// runs on the requesting user's credential, resolved through their agent.
func (s *ImageService) Generate(userID uuid.UUID, prompt string, cols, rows int, reg host.CanvasRegistry, deliver Delivery) {
	s.sched.RunAsync(func() {
		ctx := context.Background()

		agent, err := s.registry.GetOrCreateAgent(ctx, userID)
		if err != nil {
			s.fail(ctx, deliver, fmt.Errorf("session lookup error: %w", err))
			return
		}

		genCtx, cancel := context.WithTimeout(ctx, s.timeout)
		url, err := s.client.GenerateImage(genCtx, agent.Secret(), prompt, cols*canvas.TileWidth, rows*canvas.TileHeight)
		cancel()
		if err != nil {
			s.fail(ctx, deliver, fmt.Errorf("image generation error: %w", err))
			return
		}

		img, err := s.client.DownloadImage(ctx, url)
		if err != nil {
			s.fail(ctx, deliver, fmt.Errorf("image download error: %w", err))
			return
		}
		s.tileAndBind(ctx, img, cols, rows, reg, deliver)
	})
}

// tileAndBind runs on the worker lane. The main-lane continuation allocates
// and binds the canvases, delivers them, and then hands the tiles back to a
// worker for persistence so disk writes never block the main thread.
func (s *ImageService) tileAndBind(ctx context.Context, src image.Image, cols, rows int, reg host.CanvasRegistry, deliver Delivery) {
	grid, err := canvas.ResizeToGrid(src, cols, rows)
	if err != nil {
		s.fail(ctx, deliver, err)
		return
	}
	tiles, err := canvas.SplitIntoTiles(grid, cols, rows)
	if err != nil {
		s.fail(ctx, deliver, err)
		return
	}

	s.sched.RunMain(func() {
		type persisted struct {
			id   int32
			tile image.Image
		}

		canvases := make([]host.Canvas, 0, cols*rows)
		pending := make([]persisted, 0, cols*rows)

		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				c, err := reg.CreateCanvas()
				if err != nil {
					deliver(nil, fmt.Errorf("canvas allocation error: %w", err))
					return
				}
				tile := tiles[row][col]
				s.store.BindNew(c, tile)
				canvases = append(canvases, c)
				pending = append(pending, persisted{id: c.ID(), tile: tile})
			}
		}

		// registered before delivery so a Wait started by the delivered
		// party cannot miss the in-flight persist
		s.persists.Add(1)

		deliver(canvases, nil)

		s.sched.RunAsync(func() {
			defer s.persists.Done()
			for _, p := range pending {
				if err := s.store.Persist(ctx, p.id, p.tile); err != nil {
					s.log.Error(ctx, "tile persist failed", "canvas_id", p.id, "error", err)
				}
			}
		})
	})
}

func (s *ImageService) fail(ctx context.Context, deliver Delivery, err error) {
	s.log.Warn(ctx, "image pipeline failed", "error", err)
	s.sched.RunMain(func() {
		deliver(nil, err)
	})
}
