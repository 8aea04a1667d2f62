package hotswap

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blackjack/webcam"
	"github.com/google/uuid"
)

// V4L2のピクセルフォーマット（FourCCコード）
const (
	pixelFormatYUYV  = webcam.PixelFormat(0x56595559) // 'YUYV'
	pixelFormatMJPEG = webcam.PixelFormat(0x47504A4D) // 'MJPG'
)

// LinuxPlatform はLinux環境でのPlatform実装
// 列挙は /dev/video* のスキャンと v4l2-ctl による実名取得で行い、
// ストリーム取得はV4L2デバイスを直接開いて行う
type LinuxPlatform struct {
	pollInterval time.Duration
}

// NewLinuxPlatform は新しいLinuxPlatformを作成する
func NewLinuxPlatform(pollInterval time.Duration) *LinuxPlatform {
	return &LinuxPlatform{
		pollInterval: pollInterval,
	}
}

// EnumerateDevices はシステム内の利用可能なビデオ入力デバイスを列挙する
func (p *LinuxPlatform) EnumerateDevices(ctx context.Context) ([]Device, error) {
	paths, err := videoDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	devices := make([]Device, 0, len(paths))
	for _, path := range paths {
		// コンテキストのキャンセルをチェック
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !isDeviceAvailable(path) {
			continue
		}

		devices = append(devices, Device{
			ID:        path,
			Label:     deviceLabel(path),
			Kind:      KindVideoInput,
			Available: true,
		})
	}

	return devices, nil
}

// WatchChanges はデバイストポロジの変更を定期ポーリングで監視し、
// 変化を検知したときにペイロードなしのシグナルを送信する
func (p *LinuxPlatform) WatchChanges(ctx context.Context) (<-chan struct{}, func(), error) {
	signalCh := make(chan struct{}, 1)
	stopCh := make(chan struct{})

	var once sync.Once
	detach := func() {
		once.Do(func() {
			close(stopCh)
		})
	}

	go func() {
		defer close(signalCh)

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()

		last, _ := videoDevicePaths()

		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				current, err := videoDevicePaths()
				if err != nil {
					continue
				}
				if samePaths(last, current) {
					continue
				}
				last = current

				// シグナルにペイロードはない。受信側が処理中の場合は1件に畳む
				select {
				case signalCh <- struct{}{}:
				default:
				}
			}
		}
	}()

	return signalCh, detach, nil
}

// AcquireStream は制約に従ってキャプチャストリームを取得する
// どのデバイスを優先するかの方針は持たず、最初に利用可能なデバイスを開く
func (p *LinuxPlatform) AcquireStream(ctx context.Context, constraints StreamConstraints) (Stream, error) {
	devices, err := p.EnumerateDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("ストリーム取得前の列挙に失敗: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("利用可能なビデオ入力デバイスがありません")
	}

	device := devices[0]
	cam, err := webcam.Open(device.ID)
	if err != nil {
		return nil, fmt.Errorf("デバイス %s のオープンに失敗: %w", device.ID, err)
	}

	format, err := selectPixelFormat(cam)
	if err != nil {
		_ = cam.Close()
		return nil, err
	}

	if _, _, _, err := cam.SetImageFormat(format, uint32(constraints.Width), uint32(constraints.Height)); err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("デバイス %s のフォーマット設定に失敗: %w", device.ID, err)
	}

	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("デバイス %s のストリーミング開始に失敗: %w", device.ID, err)
	}

	return &v4l2Stream{
		id:     uuid.New().String(),
		device: device.ID,
		cam:    cam,
	}, nil
}

// v4l2Stream は開かれたV4L2デバイスを包むストリームハンドル
type v4l2Stream struct {
	id     string
	device string
	cam    *webcam.Webcam
}

// ID はストリームの一意識別子を返す
func (s *v4l2Stream) ID() string {
	return s.id
}

// Close はストリーミングを停止しデバイスを解放する
func (s *v4l2Stream) Close() error {
	_ = s.cam.StopStreaming()
	if err := s.cam.Close(); err != nil {
		return fmt.Errorf("デバイス %s のクローズに失敗: %w", s.device, err)
	}
	return nil
}

// selectPixelFormat はデバイスがサポートするフォーマットから使用するものを選択する
func selectPixelFormat(cam *webcam.Webcam) (webcam.PixelFormat, error) {
	supported := cam.GetSupportedFormats()

	for _, preferred := range []webcam.PixelFormat{pixelFormatYUYV, pixelFormatMJPEG} {
		if _, ok := supported[preferred]; ok {
			return preferred, nil
		}
	}

	// 優先フォーマットがない場合は任意のサポートフォーマットを使用する
	for format := range supported {
		return format, nil
	}

	return 0, fmt.Errorf("デバイスがサポートするフォーマットが見つかりません")
}

// videoDevicePaths は /dev/video* のデバイスパスを番号順で返す
func videoDevicePaths() ([]string, error) {
	matches, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	return matches, nil
}

// samePaths は2つのパス一覧が同一かどうかを返す
func samePaths(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// isDeviceAvailable は指定されたデバイスが利用可能かチェックする
func isDeviceAvailable(device string) bool {
	// V4L2デバイスのパターンかチェック
	if matched, _ := regexp.MatchString(`^/dev/video\d+$`, device); !matched {
		return false
	}

	// デバイスファイルの存在と読み取り権限をチェック
	if _, err := os.Stat(device); os.IsNotExist(err) {
		return false
	}
	file, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	_ = file.Close()

	return true
}

// deviceLabel はデバイスの表示名を取得する
func deviceLabel(device string) string {
	// v4l2-ctlを使って実際のカメラ名を取得
	if name := v4l2DeviceName(device); name != "" {
		return name
	}

	// フォールバック: デバイス番号から生成
	return fmt.Sprintf("カメラ %d", extractDeviceNumber(device))
}

// v4l2DeviceName はv4l2-ctlを使って実際のデバイス名を取得する
func v4l2DeviceName(device string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", device, "--info")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	// "Card type" の行からカメラ名を抽出
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Card type") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}

	return ""
}

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(device string) int {
	re := regexp.MustCompile(`video(\d+)`)
	matches := re.FindStringSubmatch(device)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}

	return num
}
