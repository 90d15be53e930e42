package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// Streaming test client: authenticates, opens a session, paces audio to
// the server in real time, and prints every event until session_ended.

type deviceAuthRequest struct {
	SerialNumber string `json:"serial_number"`
	SecretKey    string `json:"secret_key"`
}

type deviceAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	DeviceID  string    `json:"device_id"`
}

const (
	sampleRate = 16000
	chunkMs    = 100
)

func main() {
	host := flag.String("host", "localhost:8080", "server host:port")
	serial := flag.String("serial", "DEV001", "device serial number")
	secret := flag.String("secret", "secret123", "device secret key")
	audioPath := flag.String("audio", "", "raw PCM16 mono 16kHz file to stream; a generated tone is used when empty")
	seconds := flag.Int("seconds", 5, "seconds of generated tone when no file is given")
	flag.Parse()

	token, deviceID, err := authenticateDevice(*host, *serial, *secret)
	if err != nil {
		log.Fatal("Failed to authenticate device: ", err)
	}
	log.Printf("Successfully authenticated device: %s", deviceID)

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	headers := http.Header{}
	headers.Add("Authorization", "Bearer "+token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), headers)
	if err != nil {
		log.Fatal("dial: ", err)
	}
	defer c.Close()

	done := make(chan struct{})
	go readEvents(c, done)

	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"command":"start","language":"en","encoding":"pcm"}`)); err != nil {
		log.Fatal("start: ", err)
	}

	pcm := loadAudio(*audioPath, *seconds)
	streamAudio(c, pcm)

	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"command":"stop"}`)); err != nil {
		log.Fatal("stop: ", err)
	}

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Println("timed out waiting for session_ended")
	}
}

func authenticateDevice(host, serial, secret string) (string, string, error) {
	jsonData, err := json.Marshal(deviceAuthRequest{SerialNumber: serial, SecretKey: secret})
	if err != nil {
		return "", "", err
	}

	resp, err := http.Post("http://"+host+"/api/v1/device/auth", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("authentication failed: %s", string(body))
	}

	var authResp deviceAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return "", "", err
	}
	return authResp.Token, authResp.DeviceID, nil
}

// readEvents prints server events and closes done on session_ended.
func readEvents(c *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			log.Println("read: ", err)
			return
		}

		var event map[string]interface{}
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("unparsable event: %s", message)
			continue
		}
		log.Printf("<- %s", message)

		if event["type"] == "session_ended" {
			return
		}
	}
}

// loadAudio reads raw PCM16 from path, or synthesizes a tone with short
// silence gaps so the server detects utterance boundaries.
func loadAudio(path string, seconds int) []byte {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal("read audio: ", err)
		}
		return data
	}

	n := seconds * sampleRate
	buf := new(bytes.Buffer)
	for i := 0; i < n; i++ {
		// 500ms of silence at the end of every 2s block.
		var sample int16
		if (i/sampleRate)%2 == 1 && i%sampleRate >= sampleRate/2 {
			sample = 0
		} else {
			sample = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
		}
		binary.Write(buf, binary.LittleEndian, sample)
	}
	return buf.Bytes()
}

// streamAudio paces the PCM out in real-time chunks the way a device
// would.
func streamAudio(c *websocket.Conn, pcm []byte) {
	chunkBytes := sampleRate * 2 * chunkMs / 1000
	ticker := time.NewTicker(chunkMs * time.Millisecond)
	defer ticker.Stop()

	for off := 0; off < len(pcm); off += chunkBytes {
		end := off + chunkBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := c.WriteMessage(websocket.BinaryMessage, pcm[off:end]); err != nil {
			log.Fatal("write audio: ", err)
		}
		<-ticker.C
	}
	log.Printf("streamed %d bytes of audio", len(pcm))
}
