package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	parsex "github.com/thoriqalqi/VISTARA/agent/parse"
)

// imageURLKey carries a data URL or hosted URL into the vision graph. Templates never render it.
const imageURLKey = "image_url"

func newTemplate(systemPrompt, userTemplate string) einoprompt.ChatTemplate {
	msgs := make([]schema.MessagesTemplate, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		msgs = append(msgs, schema.SystemMessage(systemPrompt))
	}
	msgs = append(msgs, schema.UserMessage(userTemplate))
	return einoprompt.FromMessages(schema.GoTemplate, msgs...)
}

func parseObject(_ context.Context, msg *schema.Message) (parsex.Object, error) {
	if msg == nil {
		return parsex.Object{}, nil
	}
	return parsex.ExtractObject(msg.Content), nil
}

// parseIdeas accepts either {"ideas": [...]} or a bare array of idea objects.
func parseIdeas(_ context.Context, msg *schema.Message) ([]parsex.Object, error) {
	if msg == nil {
		return nil, nil
	}
	if obj := parsex.ExtractObject(msg.Content); obj.Has("ideas") {
		return obj.Objects("ideas"), nil
	}
	return parsex.ExtractArray(msg.Content), nil
}

func compileObjectGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	userTemplate string,
	graphName string,
) (compose.Runnable[map[string]any, parsex.Object], error) {
	return compileStructuredLLMGraph(ctx, chatModel, newTemplate(systemPrompt, userTemplate), parseObject, graphName)
}

func compileIdeasGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	userTemplate string,
	graphName string,
) (compose.Runnable[map[string]any, []parsex.Object], error) {
	return compileStructuredLLMGraph(ctx, chatModel, newTemplate(systemPrompt, userTemplate), parseIdeas, graphName)
}

func compileStructuredLLMGraph[T any](
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	template einoprompt.ChatTemplate,
	parse func(context.Context, *schema.Message) (T, error),
	graphName string,
) (compose.Runnable[map[string]any, T], error) {
	graph := compose.NewGraph[map[string]any, T]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add structured prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add structured model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.InvokableLambda(parse)); err != nil {
		return nil, fmt.Errorf("add structured parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add structured edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add structured edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add structured edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add structured edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", graphName, err)
	}
	return runner, nil
}

// compileVisionGraph renders the text prompt, then attaches the image from
// vars[imageURLKey] to the user turn as a multi-part message.
func compileVisionGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	userTemplate string,
	graphName string,
) (compose.Runnable[map[string]any, parsex.Object], error) {
	template := newTemplate(systemPrompt, userTemplate)

	graph := compose.NewGraph[map[string]any, parsex.Object]()
	if err := graph.AddLambdaNode("prompt",
		compose.InvokableLambda(func(ctx context.Context, vars map[string]any) ([]*schema.Message, error) {
			msgs, err := template.Format(ctx, vars)
			if err != nil {
				return nil, fmt.Errorf("%w: format vision prompt: %v", contractx.ErrValidation, err)
			}
			imageURL, _ := vars[imageURLKey].(string)
			if imageURL == "" || len(msgs) == 0 {
				return msgs, nil
			}
			user := msgs[len(msgs)-1]
			user.MultiContent = []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: user.Content},
				{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{
					URL:    imageURL,
					Detail: schema.ImageURLDetailAuto,
				}},
			}
			user.Content = ""
			return msgs, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add vision prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add vision model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.InvokableLambda(parseObject)); err != nil {
		return nil, fmt.Errorf("add vision parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add vision edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add vision edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add vision edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add vision edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", graphName, err)
	}
	return runner, nil
}
