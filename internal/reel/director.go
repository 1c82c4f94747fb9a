package reel

import (
	"context"
	"fmt"
	"strings"

	"gemini-studio/internal/gemini"
	"gemini-studio/internal/llmjson"

	"google.golang.org/genai"
)

const (
	ActionNewAsset       = "NEW_ASSET"
	ActionEditAsset      = "EDIT_ASSET"
	ActionAnswerQuestion = "ANSWER_QUESTION"
	ActionModelMismatch  = "MODEL_MISMATCH"
)

// historyWindow is the number of trailing chat messages shown to the director.
const historyWindow = 4

// AssetRef is the part of a frontend asset the director looks at.
type AssetRef struct {
	Type string `json:"type"`
}

// Message is a chat entry. Content is a string for text messages and an
// arbitrary object for rich ones.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
	Type    string `json:"type,omitempty"`
}

type DirectorRequest struct {
	UserPrompt           string              `json:"userPrompt"`
	SelectedModel        string              `json:"selectedModel"`
	Assets               map[string]AssetRef `json:"assets"`
	SelectedAssetID      string              `json:"selectedAssetId"`
	LastGeneratedAssetID string              `json:"lastGeneratedAssetId"`
	Messages             []Message           `json:"messages"`
	HasUploadedFiles     bool                `json:"hasUploadedFiles"`
}

type DirectorResponse struct {
	Action         string `json:"action"`
	Prompt         string `json:"prompt"`
	Reasoning      string `json:"reasoning"`
	TargetAssetID  string `json:"targetAssetId,omitempty"`
	SuggestedModel string `json:"suggestedModel,omitempty"`
}

// modality describes how the director talks about one asset kind.
type modality struct {
	assetType     string
	tool          *genai.FunctionDeclaration
	targetArg     string
	newAction     string
	editAction    string
	defaultReason string
	fallback      string
	prompt        func(selected, last, history, userPrompt string) string
}

var videoModality = modality{
	assetType: "video",
	tool: directorTool(
		"video_creative_director_action",
		"Determines the next action for video creation.",
		`"EDIT_VIDEO", "NEW_VIDEO", or "ANSWER_QUESTION"`,
		"Refined prompt or text answer",
		"Explanation in Chinese",
		"targetVideoId",
		"ID of the video to act upon",
	),
	targetArg:     "targetVideoId",
	newAction:     "NEW_VIDEO",
	editAction:    "EDIT_VIDEO",
	defaultReason: "好的，正在为您处理视频请求。",
	fallback:      `好的，正在为您生成关于"%s"的视频。`,
	prompt: func(selected, last, history, userPrompt string) string {
		return fmt.Sprintf(`
You are an AI Video Director. Analyze the user's request in the context of a video creation session.

**Context**:
- Explicitly Selected Video ID: %s
- Last Generated Video ID: %s
- Recent Chat:
%s
- User Request: "%s"

**Logic**:
1. **EDIT_VIDEO**: If the user wants to change, modify, extend, or iterate on a video (e.g., "make it faster", "change style to claymation", "redo this"), the action is EDIT_VIDEO.
2. **NEW_VIDEO**: If the user wants a completely new subject or scene (e.g., "show me a cat instead", "create a video of space").
3. **ANSWER_QUESTION**: If it's a general question or conversational remark.

**Output**: Call 'video_creative_director_action'.
- `+"`action`"+`: "EDIT_VIDEO" | "NEW_VIDEO" | "ANSWER_QUESTION"
- `+"`prompt`"+`: The refined video generation prompt (or text answer).
- `+"`reasoning`"+`: Brief explanation in Chinese (e.g., "好的，基于上一条视频为您调整风格...").
- `+"`targetVideoId`"+`: The ID of the video to edit/reference (if action is EDIT_VIDEO).
`, selected, last, history, userPrompt)
	},
}

var imageModality = modality{
	assetType: "image",
	tool: directorTool(
		"creative_director_action",
		"Analyzes user intent in an image creation context and determines the next best action.",
		`The determined action. Must be one of: "EDIT_IMAGE", "NEW_CREATION", "ANSWER_QUESTION".`,
		"The original or a refined prompt to be used for the next step. For ANSWER_QUESTION, this is the text response.",
		"A brief, user-facing explanation in Chinese for why this action was chosen.",
		"targetImageId",
		`If the action is "EDIT_IMAGE", this is the ID of the image that should be edited.`,
	),
	targetArg:     "targetImageId",
	newAction:     "NEW_CREATION",
	editAction:    "EDIT_IMAGE",
	defaultReason: "好的，正在为您处理图片请求。",
	fallback:      `好的，正在为您创作一张关于"%s"的图片。`,
	prompt: func(selected, last, history, userPrompt string) string {
		return fmt.Sprintf(`
You are an AI Creative Director. Your job is to analyze the user's request in the context of an image creation session and decide the next action.

**Current Context**:
- Explicitly Selected Image ID: %s
- Most Recently Generated Image ID: %s
- Recent Conversation History:
%s
- User's Latest Request: "%s"

**Your Logic & Rules**:
1. **Prioritize Editing**: If an image is explicitly selected OR if the request is a clear follow-up modification to the last generated image (e.g., "change the background", "make it blue"), the action MUST be **EDIT_IMAGE**.
2. **Answer Question**: If the user is asking a question or making a comment that doesn't seem to be an image request (e.g., "what can you do?", "that's cool"), the action is **ANSWER_QUESTION**.
3. **Default to New Creation**: For any other creative request that is not an edit or a question, the action is **NEW_CREATION**.

Based on this logic, call the 'creative_director_action' function with your decision. The 'reasoning' should be a short, friendly, and contextual message in Chinese to the user explaining your understanding.
`, selected, last, history, userPrompt)
	},
}

func directorTool(name, description, actionDesc, promptDesc, reasoningDesc, targetName, targetDesc string) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        name,
		Description: description,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"action":    {Type: genai.TypeString, Description: actionDesc},
				"prompt":    {Type: genai.TypeString, Description: promptDesc},
				"reasoning": {Type: genai.TypeString, Description: reasoningDesc},
				targetName:  {Type: genai.TypeString, Description: targetDesc},
			},
			Required: []string{"action", "prompt", "reasoning"},
		},
	}
}

// CreativeDirector decides what the studio should do with the user's latest
// message: create, edit, answer, or suggest switching model.
func (s *Service) CreativeDirector(ctx context.Context, req DirectorRequest) (*DirectorResponse, error) {
	req.SelectedModel = orDefault(req.SelectedModel, "banana")
	isVideo := gemini.IsVideoModel(req.SelectedModel)

	s.logger.Info("creative director request",
		"model", req.SelectedModel, "assets", len(req.Assets), "uploads", req.HasUploadedFiles)

	if !req.HasUploadedFiles {
		if mismatch := s.checkModality(ctx, req.UserPrompt, isVideo); mismatch != nil {
			return mismatch, nil
		}
	}

	m := imageModality
	if isVideo {
		m = videoModality
	}

	selected := assetOfType(req.Assets, req.SelectedAssetID, m.assetType)
	last := assetOfType(req.Assets, req.LastGeneratedAssetID, m.assetType)
	prompt := m.prompt(orDefault(selected, "None"), orDefault(last, "None"), history(req.Messages), req.UserPrompt)

	call, err := s.gen.FunctionCall(ctx, gemini.FunctionRequest{
		Model:        s.models.Pro,
		Prompt:       prompt,
		Declarations: []*genai.FunctionDeclaration{m.tool},
	})
	if err != nil {
		return nil, fmt.Errorf("creative director: %w", err)
	}
	if call == nil || call.Args == nil {
		s.logger.Info("creative director answered without a function call, using fallback")
		return &DirectorResponse{
			Action:    ActionNewAsset,
			Prompt:    req.UserPrompt,
			Reasoning: fmt.Sprintf(m.fallback, req.UserPrompt),
		}, nil
	}

	resp := &DirectorResponse{
		Action:        m.action(orDefault(gemini.Args(call, "action"), m.newAction)),
		Prompt:        orDefault(gemini.Args(call, "prompt"), req.UserPrompt),
		Reasoning:     orDefault(gemini.Args(call, "reasoning"), m.defaultReason),
		TargetAssetID: gemini.Args(call, m.targetArg),
	}
	s.logger.Info("creative director decided", "action", resp.Action, "target", resp.TargetAssetID)
	return resp, nil
}

func (m modality) action(a string) string {
	switch a {
	case m.newAction:
		return ActionNewAsset
	case m.editAction:
		return ActionEditAsset
	default:
		return ActionAnswerQuestion
	}
}

type modalityCheck struct {
	Mismatch       bool   `json:"mismatch"`
	SuggestedModel string `json:"suggestedModel"`
	Reasoning      string `json:"reasoning"`
}

// checkModality returns a MODEL_MISMATCH reply when the prompt clearly asks for
// the other modality. Classifier failures are ignored.
func (s *Service) checkModality(ctx context.Context, userPrompt string, isVideo bool) *DirectorResponse {
	current := "IMAGE"
	if isVideo {
		current = "VIDEO"
	}
	prompt := fmt.Sprintf(`
You are a specialized Intent Classifier for a creative AI tool.
Your ONLY job is to detect if the User's Prompt CONTRADICTS the Current Selected Model Modality.

Current Model Modality: %s
User Prompt: "%s"

Rules:
1. If User Prompt clearly asks for VIDEO (e.g. "drone shot", "moving", "animation", "pan", "zoom", "video", "clip") AND Current Modality is IMAGE -> Mismatch = TRUE.
2. If User Prompt clearly asks for IMAGE (e.g. "logo", "icon", "poster", "picture", "photo", "static") AND Current Modality is VIDEO -> Mismatch = TRUE.
3. Otherwise (ambiguous or matching) -> Mismatch = FALSE.

Return JSON: { "mismatch": boolean, "suggestedModel": "veo_fast" | "banana", "reasoning": "string (in Chinese)" }
`, current, userPrompt)

	text, err := s.gen.Text(ctx, gemini.TextRequest{Model: s.models.Text, Prompt: prompt})
	if err != nil {
		s.logger.Warn("modality check failed, proceeding", "error", err)
		return nil
	}
	check := llmjson.ParseOr(text, modalityCheck{})
	if !check.Mismatch || check.SuggestedModel == "" {
		return nil
	}
	return &DirectorResponse{
		Action:         ActionModelMismatch,
		Prompt:         userPrompt,
		Reasoning:      orDefault(check.Reasoning, "检测到您的需求与当前模型不匹配。"),
		SuggestedModel: check.SuggestedModel,
	}
}

func assetOfType(assets map[string]AssetRef, id, assetType string) string {
	if id == "" {
		return ""
	}
	if a, ok := assets[id]; ok && a.Type == assetType {
		return id
	}
	return ""
}

func history(messages []Message) string {
	if len(messages) > historyWindow {
		messages = messages[len(messages)-historyWindow:]
	}
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		role := orDefault(msg.Role, "user")
		if text, ok := msg.Content.(string); ok || msg.Content == nil {
			lines = append(lines, role+": "+text)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: [%s message]", role, orDefault(msg.Type, "unknown")))
	}
	return strings.Join(lines, "\n")
}
