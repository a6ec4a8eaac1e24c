package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/beamlabs/beam/internal/peer"
)

var (
	broadcastRoom string
	rtpAddr       string
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "Create a room and stream local RTP packets to every viewer",
	Long: `Creates a room on the relay and waits for viewers. RTP packets read
from a local UDP socket (for example from ffmpeg or gstreamer) are sent to
every viewer over its negotiated peer connection.`,
	RunE: runBroadcast,
}

func init() {
	broadcastCmd.Flags().StringVar(&broadcastRoom, "room", "", "room id (relay generates one when empty)")
	broadcastCmd.Flags().StringVar(&rtpAddr, "rtp-addr", "127.0.0.1:5004", "local UDP address to read RTP from")
}

func runBroadcast(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "beam")
	if err != nil {
		return err
	}

	client := peer.NewClient(serverURL)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	b := peer.NewBroadcaster(client, []webrtc.TrackLocal{track})
	b.Start(broadcastRoom)

	go func() {
		if roomID, ok := <-b.Created(); ok {
			log.Info().Str("room_id", roomID).Msg("Room ready, waiting for viewers")
		}
	}()

	go feedTrack(ctx, track)

	go func() {
		<-ctx.Done()
		log.Info().Msg("Stopping broadcast")
		b.Stop()
		// Give the stop a moment to echo back before forcing the
		// channel shut.
		time.AfterFunc(5*time.Second, client.Close)
	}()

	if err := b.Run(context.Background()); err != nil && !errors.Is(err, peer.ErrChannelClosed) {
		return err
	}
	return nil
}

// feedTrack pumps RTP from the local UDP socket into the shared
// track; pion fans it out to every bound peer connection.
func feedTrack(ctx context.Context, track *webrtc.TrackLocalStaticRTP) {
	addr, err := net.ResolveUDPAddr("udp", rtpAddr)
	if err != nil {
		log.Error().Err(err).Msg("Invalid RTP address")
		return
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		log.Error().Err(err).Msg("Failed to listen for RTP")
		return
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	log.Info().Str("addr", rtpAddr).Msg("Listening for RTP")

	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		if _, err := track.Write(buf[:n]); err != nil {
			if errors.Is(err, io.ErrClosedPipe) {
				// No viewer bound yet.
				continue
			}
			return
		}
	}
}
