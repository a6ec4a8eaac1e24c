package main

import (
	"context"
	"errors"
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
	watchRoom string
	rtpOut    string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Join a room and receive the broadcaster's stream",
	Long: `Joins an existing room and negotiates a peer connection with its
broadcaster. Received RTP packets are forwarded to a local UDP address when
--rtp-out is set, otherwise only counted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchRoom, "room", "", "room id to join (required)")
	watchCmd.Flags().StringVar(&rtpOut, "rtp-out", "", "local UDP address to forward received RTP to")
	watchCmd.MarkFlagRequired("room")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := peer.NewClient(serverURL)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	v := peer.NewViewer(client, consumeTrack)
	v.Join(watchRoom)

	go func() {
		if roomID, ok := <-v.Joined(); ok {
			log.Info().Str("room_id", roomID).Msg("Joined room, waiting for the stream")
		}
	}()

	go func() {
		<-ctx.Done()
		log.Info().Msg("Leaving room")
		v.Exit()
		time.AfterFunc(5*time.Second, client.Close)
	}()

	if err := v.Run(context.Background()); err != nil && !errors.Is(err, peer.ErrChannelClosed) {
		return err
	}
	return nil
}

// consumeTrack drains one remote track, forwarding to UDP when
// configured.
func consumeTrack(from string, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	l := log.With().Str("broadcaster_id", from).Str("kind", track.Kind().String()).Logger()
	l.Info().Msg("Receiving remote track")

	var out *net.UDPConn
	if rtpOut != "" {
		addr, err := net.ResolveUDPAddr("udp", rtpOut)
		if err != nil {
			l.Error().Err(err).Msg("Invalid RTP output address")
			return
		}
		out, err = net.DialUDP("udp", nil, addr)
		if err != nil {
			l.Error().Err(err).Msg("Failed to dial RTP output")
			return
		}
		defer out.Close()
	}

	buf := make([]byte, 1500)
	packets := 0
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			l.Info().Int("packets", packets).Msg("Track ended")
			return
		}
		packets++
		if out != nil {
			out.Write(buf[:n])
		}
	}
}
