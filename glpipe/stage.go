package glpipe

// Renderable is one pass of the render pipeline. The Renderer drives a
// frame by feeding each stage's output as the next stage's input.
type Renderable interface {
	Init(width, height int, ctx *GraphicsContext) bool
	Render()
	Destroy()
	Name() string

	setInput(fb *FrameBuffer)
	output() *FrameBuffer
}

// BaseStage holds the fields every concrete Renderable shares: the
// context it renders against, the framebuffer the renderer hands it
// before each call, and the framebuffer it produces. Concrete stages
// embed BaseStage and implement Init/Render/Destroy/Name themselves.
type BaseStage struct {
	name    string
	ctx     *GraphicsContext
	inputFB *FrameBuffer
	outFB   *FrameBuffer
}

func NewBaseStage(name string) BaseStage {
	return BaseStage{name: name}
}

func (b *BaseStage) Name() string { return b.name }

func (b *BaseStage) setInput(fb *FrameBuffer) { b.inputFB = fb }
func (b *BaseStage) output() *FrameBuffer     { return b.outFB }

// InputReady reports whether inputFB has been set and initialized.
// Every concrete Render() must check this first and return immediately
// when false — a stage is never asked to sample an unready framebuffer.
func (b *BaseStage) InputReady() bool {
	return b.inputFB != nil && b.inputFB.IsValid()
}

func (b *BaseStage) Input() *FrameBuffer  { return b.inputFB }
func (b *BaseStage) Output() *FrameBuffer { return b.outFB }
func (b *BaseStage) Context() *GraphicsContext { return b.ctx }

// SetOutput installs the FrameBuffer a concrete stage produces. Stages
// with a fixed target call it once during Init; BlitToScreen and
// DrawGuidelines call it on every Render. The renderer reads it back via the promoted
// output() accessor to feed the next stage's input.
func (b *BaseStage) SetOutput(fb *FrameBuffer) { b.outFB = fb }

// SetContext records the context a stage renders against. Called by
// Init so later Render calls can reach GL state if needed.
func (b *BaseStage) SetContext(ctx *GraphicsContext) { b.ctx = ctx }
