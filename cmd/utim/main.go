package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/utim/config"
	"github.com/lanikai/utim/internal/address"
	"github.com/lanikai/utim/internal/datalink"
	"github.com/lanikai/utim/internal/frame"
	"github.com/lanikai/utim/internal/network"
	"github.com/lanikai/utim/internal/processor"
	"github.com/lanikai/utim/internal/top"
	"github.com/lanikai/utim/internal/transport"
)

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}

	if flagVersion {
		log.Println("utim (development build)")
		os.Exit(0)
	}

	if flagConfig != "" {
		os.Setenv("UTIM_CONFIG", flagConfig)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	state, err := processor.NewUtim(cfg.UtimName, cfg.MasterKey)
	if err != nil {
		log.Fatalf("utim: %v", err)
	}

	var dlBackend datalink.Backend
	var synth *datalink.QueueBackend

	if flagDevice != "" {
		f, err := os.OpenFile(flagDevice, os.O_RDWR, 0)
		if err != nil {
			log.Fatalf("device: %v", err)
		}
		dlBackend = datalink.NewSerialBackend(f, 0)
	} else {
		loopback, peer := datalink.NewQueuePair()
		dlBackend = loopback
		synth = peer
		log.Println("no -device given, using in-process loopback; device NETWORK_READY will be synthesized")
	}

	dl := datalink.NewManager(dlBackend)
	defer dl.Stop()

	net := network.NewManager(dl)
	defer net.Stop()

	tr := transport.NewManager(net)
	defer tr.Stop()

	topMgr := top.NewManager(tr)
	defer topMgr.Stop()

	if err := topMgr.ConnectUhost(cfg); err != nil {
		log.Fatalf("uhost: %v", err)
	}
	log.Printf("connected to uhost as %s over %s", cfg.UtimName, cfg.MessagingProtocol)

	procMgr := processor.NewManager(state, topMgr)
	defer procMgr.Stop()

	if synth != nil {
		networkReady := []byte{0x1c, 0x00, 0x00}
		wire := frame.Encode(byte(address.Device), frame.Encode(byte(transport.Device), networkReady))
		if !synth.Send(wire) {
			log.Println("failed to inject synthetic NETWORK_READY")
		}
		go watchDeviceOutbound(synth)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Println("shutting down")
}

// watchDeviceOutbound polls the loopback peer for whatever the stack sends
// back to the DEVICE side and logs it — with a synthetic device there is
// nothing downstream to consume a session key, so this is the Go equivalent
// of the example launcher printing it to the console.
func watchDeviceOutbound(peer *datalink.QueueBackend) {
	for {
		msg, ok := peer.Receive()
		if !ok {
			time.Sleep(20 * time.Millisecond)
			continue
		}
		log.Printf("device outbound: % x", msg)
	}
}
