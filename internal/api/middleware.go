package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// ZstdMiddleware decodes zstd request bodies and zstd-encodes responses for
// clients that accept it, unless an inner handler already set an encoding.
// Decoded bodies larger than maxSize bytes are rejected with 413.
func ZstdMiddleware(maxSize int, skipRoutes []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if slices.Contains(skipRoutes, c.Path()) {
			return c.Next()
		}

		if strings.EqualFold(c.Get(fiber.HeaderContentEncoding), "zstd") && len(c.Body()) > 0 {
			decoder, err := zstd.NewReader(bytes.NewReader(c.Body()), zstd.WithDecoderMaxMemory(uint64(maxSize)))
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("failed to decompress zstd data: %s", err))
			}
			decompressed, err := io.ReadAll(io.LimitReader(decoder, int64(maxSize)+1))
			decoder.Close()
			if tooLarge(err) || len(decompressed) > maxSize {
				return fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("decompressed body exceeds %d bytes", maxSize))
			}
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("failed to decompress zstd data: %s", err))
			}
			c.Request().SetBody(decompressed)
			c.Request().Header.Del(fiber.HeaderContentEncoding)
			log.Debug().Int("size", len(decompressed)).Msg("request body decompressed")
		}

		if err := c.Next(); err != nil {
			return err
		}

		if !strings.Contains(strings.ToLower(c.Get(fiber.HeaderAcceptEncoding)), "zstd") ||
			len(c.Response().Header.Peek(fiber.HeaderContentEncoding)) > 0 {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			log.Err(err).Msg("failed to create zstd encoder")
			return nil
		}
		defer encoder.Close()

		compressed := encoder.EncodeAll(body, nil)
		c.Response().SetBody(compressed)
		c.Set(fiber.HeaderContentEncoding, "zstd")
		c.Set(fiber.HeaderContentLength, strconv.Itoa(len(compressed)))
		return nil
	}
}

func tooLarge(err error) bool {
	return errors.Is(err, zstd.ErrDecoderSizeExceeded) ||
		errors.Is(err, zstd.ErrWindowSizeExceeded) ||
		errors.Is(err, zstd.ErrFrameSizeExceeded)
}
